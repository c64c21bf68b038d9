package tourism

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	generativeAI "github.com/FACorreiaa/go-travelmate/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travelmate/internal/api/weather"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

const recordTimeout = 2 * time.Second

type geocodeResult struct {
	loc *types.LocationData
	err error
}

// pipelineRun carries what is scoped to a single run: the geocode memo and
// the optional progress sink of the streaming variant.
type pipelineRun struct {
	svc      *ServiceImpl
	progress func(types.ReasoningStep)

	group    singleflight.Group
	mu       sync.Mutex
	geocoded map[string]geocodeResult
}

func newPipelineRun(svc *ServiceImpl, progress func(types.ReasoningStep)) *pipelineRun {
	return &pipelineRun{
		svc:      svc,
		progress: progress,
		geocoded: make(map[string]geocodeResult),
	}
}

func (r *pipelineRun) emit(step, message string) {
	if r.progress == nil {
		return
	}
	r.progress(types.ReasoningStep{Step: step, Message: message})
}

// resolve geocodes each distinct name at most once per run, failures
// included. Concurrent callers for the same name share one upstream call.
func (r *pipelineRun) resolve(ctx context.Context, name string) (*types.LocationData, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.Lock()
	if res, ok := r.geocoded[key]; ok {
		r.mu.Unlock()
		return res.loc, res.err
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		if res, ok := r.geocoded[key]; ok {
			r.mu.Unlock()
			return res.loc, res.err
		}
		r.mu.Unlock()

		loc, err := r.svc.geocoder.Resolve(ctx, name)
		r.mu.Lock()
		r.geocoded[key] = geocodeResult{loc: loc, err: err}
		r.mu.Unlock()
		return loc, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.LocationData), nil
}

func (s *ServiceImpl) analyze(ctx context.Context, _ *pipelineRun, st types.PipelineState) types.PipelineState {
	messages := []generativeAI.Message{
		generativeAI.UserMessage(getAnalysisPrompt(st.Query, types.LastMessages(st.History, s.historyTurns))),
	}
	normalized := normalizeQuery(st.Query)
	complexQuery := s.keywords.isComplex(normalized) && s.keywords.hasDuration(normalized)

	raw, err := s.complete(ctx, StepAnalyze, st.QueryType, messages, analysisTemperature)
	var intent types.Intent
	if err == nil {
		intent, err = parseIntent(raw)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Intent analysis failed, using heuristic fallback",
			slog.String("query", st.Query),
			slog.Any("error", err))

		st.Location = s.keywords.guessLocation(st.Query)
		st.NeedsWeather = true
		st.NeedsPlaces = true
		st.QueryType = types.QuerySimple
		st.IsComplexQuery = complexQuery
		if complexQuery {
			st.QueryType = types.QueryMultiStepItinerary
		}
		return st
	}

	needsPlaces := intent.NeedsPlaces || s.keywords.asksForPlaces(normalized)
	queryType := types.ParseQueryType(intent.QueryType)
	switch {
	case complexQuery:
		queryType = types.QueryMultiStepItinerary
	case needsPlaces:
		queryType = types.QueryDetailedPlaces
	}

	st.Location = intentLocation(intent)
	st.NeedsWeather = intent.NeedsWeather
	st.NeedsPlaces = needsPlaces
	st.QueryType = queryType
	st.IsComplexQuery = complexQuery

	s.logger.InfoContext(ctx, "Query analyzed",
		slog.String("location", st.Location),
		slog.Bool("needs_weather", st.NeedsWeather),
		slog.Bool("needs_places", st.NeedsPlaces),
		slog.String("query_type", string(st.QueryType)),
		slog.Bool("complex", st.IsComplexQuery))
	return st
}

func (s *ServiceImpl) planning(ctx context.Context, _ *pipelineRun, st types.PipelineState) types.PipelineState {
	if !st.IsComplexQuery {
		return st
	}

	messages := []generativeAI.Message{generativeAI.UserMessage(getPlanningPrompt(st.Query))}
	raw, err := s.complete(ctx, StepPlanning, st.QueryType, messages, planningTemperature)
	var plan types.TravelPlan
	if err == nil {
		plan, err = parsePlan(raw)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Planning failed, using fallback plan", slog.Any("error", err))
		plan = types.TravelPlan{ExecutionPlan: append([]string(nil), fallbackPlan...)}
	}

	st.ExecutionPlan = plan.ExecutionPlan
	st.TravelTips = plan.TravelTips
	st.NeedsWeather = true
	st.NeedsPlaces = true
	return st
}

func (s *ServiceImpl) weatherStep(ctx context.Context, run *pipelineRun, st types.PipelineState) types.PipelineState {
	if !st.HasLocation() || !st.NeedsWeather {
		return st
	}

	summary := s.lookupWeather(ctx, run, st.Location)
	st.WeatherSummary = &summary
	return st
}

func (s *ServiceImpl) lookupWeather(ctx context.Context, run *pipelineRun, location string) string {
	loc, err := run.resolve(ctx, location)
	if err != nil {
		s.logger.WarnContext(ctx, "Weather step could not resolve location",
			slog.String("location", location),
			slog.Any("error", err))
		return locationNotFound
	}

	snapshot, err := s.weather.Current(ctx, loc.Lat, loc.Lon)
	if err != nil {
		s.logger.WarnContext(ctx, "Weather lookup failed",
			slog.String("location", location),
			slog.Any("error", err))
		return weatherMissing
	}
	return weather.Summarize(location, snapshot)
}

func (s *ServiceImpl) placesStep(ctx context.Context, run *pipelineRun, st types.PipelineState) types.PipelineState {
	if !st.HasLocation() || !st.NeedsPlaces {
		return st
	}

	st.Places = []string{}
	loc, err := run.resolve(ctx, st.Location)
	if err != nil {
		s.logger.WarnContext(ctx, "Places step could not resolve location",
			slog.String("location", st.Location),
			slog.Any("error", err))
		return st
	}

	names, err := s.places.Attractions(ctx, loc.Lat, loc.Lon, s.placesLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "Places lookup failed",
			slog.String("location", st.Location),
			slog.Any("error", err))
		return st
	}
	st.Places = dedupeNames(names, s.placesLimit)
	return st
}

func (s *ServiceImpl) synthesize(ctx context.Context, _ *pipelineRun, st types.PipelineState) types.PipelineState {
	view := st
	view.History = types.LastMessages(st.History, s.historyTurns)
	messages, temperature, template := synthesisMessages(view)

	s.logger.InfoContext(ctx, "Synthesizing response",
		slog.String("template", template),
		slog.String("query_type", string(st.QueryType)),
		slog.Bool("has_weather", st.WeatherSummary != nil),
		slog.Int("places", len(st.Places)))

	raw, err := s.complete(ctx, StepSynthesize, st.QueryType, messages, temperature)
	reply := strings.TrimSpace(raw)
	switch {
	case errors.Is(err, generativeAI.ErrEmptyCompletion):
		s.logger.ErrorContext(ctx, "Model returned an empty response", slog.String("template", template))
		st.FinalResponse = apologyEmpty
	case err != nil:
		s.logger.ErrorContext(ctx, "Synthesis failed", slog.String("template", template), slog.Any("error", err))
		st.FinalResponse = apologyError
	case reply == "":
		s.logger.ErrorContext(ctx, "Model returned an empty response", slog.String("template", template))
		st.FinalResponse = apologyEmpty
	default:
		st.FinalResponse = reply
	}
	return st
}

// complete calls the model and audits the call's metadata.
func (s *ServiceImpl) complete(ctx context.Context, step string, queryType types.QueryType, messages []generativeAI.Message, temperature float32) (string, error) {
	start := time.Now()
	text, err := s.llm.Complete(ctx, messages, temperature)
	s.record(ctx, step, queryType, messages, temperature, text, err, time.Since(start))
	return text, err
}

func (s *ServiceImpl) record(ctx context.Context, step string, queryType types.QueryType, messages []generativeAI.Message,
	temperature float32, text string, callErr error, latency time.Duration) {
	if s.recorder == nil {
		return
	}

	var info generativeAI.ProviderInfo
	if p, ok := s.llm.(interface{ Info() generativeAI.ProviderInfo }); ok {
		info = p.Info()
	}
	promptLength := 0
	for _, m := range messages {
		promptLength += utf8.RuneCountInString(m.Content)
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	s.recorder.Record(recCtx, types.LlmInteraction{
		RequestID:      middleware.GetReqID(ctx),
		Step:           step,
		Provider:       info.Provider,
		ModelUsed:      info.Model,
		QueryType:      queryType,
		Temperature:    temperature,
		PromptLength:   promptLength,
		ResponseLength: utf8.RuneCountInString(text),
		LatencyMs:      int(latency.Milliseconds()),
		Success:        callErr == nil && strings.TrimSpace(text) != "",
	})
}

// dedupeNames drops blank and case-insensitively repeated names, keeping the
// first spelling, and caps the result at limit.
func dedupeNames(names []string, limit int) []string {
	out := make([]string, 0, min(len(names), limit))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if len(out) >= limit {
			break
		}
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
