package tourism

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-travelmate/app/observability/metrics"
	"github.com/FACorreiaa/go-travelmate/config"
	generativeAI "github.com/FACorreiaa/go-travelmate/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travelmate/internal/api/geo"
	llmInteraction "github.com/FACorreiaa/go-travelmate/internal/api/llm_interaction"
	"github.com/FACorreiaa/go-travelmate/internal/api/places"
	"github.com/FACorreiaa/go-travelmate/internal/api/weather"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

var (
	ErrEmptyQuery     = errors.New("query must not be empty")
	ErrPipelineFailed = errors.New("tourism pipeline failed")
)

// Step names, as reported on spans, metrics and reasoning events.
const (
	StepAnalyze    = "analyze"
	StepPlanning   = "planning"
	StepWeather    = "weather"
	StepPlaces     = "places"
	StepSynthesize = "synthesize"
)

const (
	defaultHistoryTurns = 4
	defaultPlacesLimit  = 5

	unknownLocation  = "Unknown"
	noResponseText   = "I couldn't process your request."
	apologyEmpty     = "I apologize, but I couldn't generate a response. Please try again."
	apologyError     = "I apologize, but I encountered an error generating your response."
	locationNotFound = "Location not found"
	weatherMissing   = "Weather data not available"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Process(ctx context.Context, query string, history []types.ConversationMessage) (*types.TourismResponse, error)
	ProcessStream(ctx context.Context, query string, history []types.ConversationMessage) (*StreamingResponse, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	llm      generativeAI.Client
	geocoder geo.Geocoder
	weather  weather.Lookup
	places   places.Lookup
	recorder llmInteraction.Recorder
	keywords Keywords
	metrics  *metrics.AppMetrics

	historyTurns  int
	placesLimit   int
	parallelFetch bool
}

// NewServiceImpl wires the orchestrator. recorder may be nil, in which case
// completion calls are not audited.
func NewServiceImpl(
	llm generativeAI.Client,
	geocoder geo.Geocoder,
	weatherLookup weather.Lookup,
	placesLookup places.Lookup,
	recorder llmInteraction.Recorder,
	cfg config.OrchestratorConfig,
	logger *slog.Logger,
) *ServiceImpl {
	s := &ServiceImpl{
		logger:        logger,
		llm:           llm,
		geocoder:      geocoder,
		weather:       weatherLookup,
		places:        placesLookup,
		recorder:      recorder,
		keywords:      NewKeywords(cfg.Keywords),
		metrics:       metrics.Get(),
		historyTurns:  cfg.HistoryTurns,
		placesLimit:   cfg.PlacesLimit,
		parallelFetch: cfg.ParallelFetch,
	}
	if s.historyTurns <= 0 {
		s.historyTurns = defaultHistoryTurns
	}
	if s.placesLimit <= 0 {
		s.placesLimit = defaultPlacesLimit
	}
	return s
}

func (s *ServiceImpl) Process(ctx context.Context, query string, history []types.ConversationMessage) (*types.TourismResponse, error) {
	ctx, span := otel.Tracer("TourismService").Start(ctx, "Process", trace.WithAttributes(
		attribute.Int("history.length", len(history)),
	))
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		span.SetStatus(codes.Error, "empty query")
		return nil, ErrEmptyQuery
	}
	s.metrics.TourismRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", "sync")))

	st, err := s.execute(ctx, newPipelineRun(s, nil), types.NewPipelineState(query, history))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("query.type", string(st.QueryType)),
		attribute.Bool("query.complex", st.IsComplexQuery),
	)
	span.SetStatus(codes.Ok, "query processed")
	return buildResponse(st), nil
}

// routeAfterAnalysis returns the step that follows analyze.
func routeAfterAnalysis(st types.PipelineState) string {
	switch {
	case st.IsComplexQuery:
		return StepPlanning
	case st.NeedsWeather || st.NeedsPlaces:
		return StepWeather
	default:
		return StepSynthesize
	}
}

// execute drives one state through the step graph. Steps never fail; the
// only error is a recovered panic.
func (s *ServiceImpl) execute(ctx context.Context, run *pipelineRun, st types.PipelineState) (types.PipelineState, error) {
	l := s.logger.With(slog.String("query", st.Query))

	st, err := s.runStep(ctx, run, StepAnalyze, s.analyze, st)
	if err != nil {
		return st, err
	}

	next := routeAfterAnalysis(st)
	l.DebugContext(ctx, "Routed after analysis",
		slog.String("next", next),
		slog.String("location", st.Location),
		slog.String("query_type", string(st.QueryType)),
		slog.Bool("complex", st.IsComplexQuery))

	if next == StepPlanning {
		if st, err = s.runStep(ctx, run, StepPlanning, s.planning, st); err != nil {
			return st, err
		}
		next = StepWeather
	}

	if next == StepWeather {
		if st, err = s.fetch(ctx, run, st); err != nil {
			return st, err
		}
	}

	return s.runStep(ctx, run, StepSynthesize, s.synthesize, st)
}

// fetch runs the weather then places steps, concurrently when configured.
// Each writes only its own field so the results merge without conflict.
func (s *ServiceImpl) fetch(ctx context.Context, run *pipelineRun, st types.PipelineState) (types.PipelineState, error) {
	if !s.parallelFetch {
		st, err := s.runStep(ctx, run, StepWeather, s.weatherStep, st)
		if err != nil {
			return st, err
		}
		return s.runStep(ctx, run, StepPlaces, s.placesStep, st)
	}

	var weatherOut, placesOut types.PipelineState
	var g errgroup.Group
	g.Go(func() (err error) {
		weatherOut, err = s.runStep(ctx, run, StepWeather, s.weatherStep, st)
		return err
	})
	g.Go(func() (err error) {
		placesOut, err = s.runStep(ctx, run, StepPlaces, s.placesStep, st)
		return err
	})
	if err := g.Wait(); err != nil {
		return st, err
	}

	st.WeatherSummary = weatherOut.WeatherSummary
	st.Places = placesOut.Places
	return st, nil
}

type stepFunc func(ctx context.Context, run *pipelineRun, st types.PipelineState) types.PipelineState

func (s *ServiceImpl) runStep(ctx context.Context, run *pipelineRun, name string, fn stepFunc, st types.PipelineState) (out types.PipelineState, err error) {
	ctx, span := otel.Tracer("TourismService").Start(ctx, name)
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: step %s: %v", ErrPipelineFailed, name, r)
			s.logger.ErrorContext(ctx, "Pipeline step panicked",
				slog.String("step", name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			span.RecordError(err)
			span.SetStatus(codes.Error, "step panicked")
			out = st
		}
		s.metrics.StepDurationSeconds.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("step", name)))
	}()

	run.emit(name, stepStartMessage(name, st))
	out = fn(ctx, run, st)
	run.emit(name, stepDoneMessage(name, out))

	span.SetStatus(codes.Ok, "step completed")
	return out, nil
}

func buildResponse(st types.PipelineState) *types.TourismResponse {
	location := st.Location
	if location == "" {
		location = unknownLocation
	}
	placesInfo := st.Places
	if placesInfo == nil {
		placesInfo = []string{}
	}
	final := strings.TrimSpace(st.FinalResponse)
	if final == "" {
		final = noResponseText
	}

	return &types.TourismResponse{
		Location:            location,
		WeatherInfo:         st.WeatherSummary,
		PlacesInfo:          placesInfo,
		FinalResponse:       final,
		ConversationHistory: types.AppendTurn(st.History, st.Query, final),
	}
}

func stepStartMessage(step string, st types.PipelineState) string {
	switch step {
	case StepAnalyze:
		return "Analyzing your query"
	case StepPlanning:
		return "Planning a multi-step itinerary"
	case StepWeather:
		if st.HasLocation() && st.NeedsWeather {
			return "Checking the weather in " + st.Location
		}
		return "Skipping weather lookup"
	case StepPlaces:
		if st.HasLocation() && st.NeedsPlaces {
			return "Finding attractions in " + st.Location
		}
		return "Skipping attractions lookup"
	default:
		return "Writing your answer"
	}
}

func stepDoneMessage(step string, st types.PipelineState) string {
	switch step {
	case StepAnalyze:
		location := st.Location
		if location == "" {
			location = "none"
		}
		return fmt.Sprintf("Location: %s, query type: %s", location, st.QueryType)
	case StepPlanning:
		return fmt.Sprintf("Plan ready with %d steps", len(st.ExecutionPlan))
	case StepWeather:
		if st.WeatherSummary == nil {
			return "No weather needed"
		}
		return *st.WeatherSummary
	case StepPlaces:
		return fmt.Sprintf("Found %d attractions", len(st.Places))
	default:
		return "Answer ready"
	}
}
