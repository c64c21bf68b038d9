package tourism

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	appMiddleware "github.com/FACorreiaa/go-travelmate/app/middleware"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

const slowConsumerTimeout = 2 * time.Second

// StreamingResponse wraps the event channel of one streamed run. The
// channel is closed after the terminal event.
type StreamingResponse struct {
	Stream <-chan types.StreamEvent
	Cancel context.CancelFunc
}

// ProcessStream runs the pipeline in a producer goroutine. Reasoning events
// are sent as steps start and finish, followed by exactly one complete or
// error event.
func (s *ServiceImpl) ProcessStream(ctx context.Context, query string, history []types.ConversationMessage) (*StreamingResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan types.StreamEvent, 16)

	go func() {
		defer close(ch)
		defer cancel()

		ctx, span := otel.Tracer("TourismService").Start(ctx, "ProcessStream")
		defer span.End()
		s.metrics.TourismRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", "stream")))

		run := newPipelineRun(s, func(step types.ReasoningStep) {
			s.sendEvent(ctx, ch, types.StreamEvent{Type: types.EventTypeReasoning, Data: step})
		})

		st, err := s.execute(ctx, run, types.NewPipelineState(query, history))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline failed")
			s.sendEvent(ctx, ch, types.StreamEvent{
				Type:    types.EventTypeError,
				Message: appMiddleware.GenericFailureMessage,
				IsFinal: true,
			})
			return
		}

		span.SetStatus(codes.Ok, "stream completed")
		s.sendEvent(ctx, ch, types.StreamEvent{
			Type:    types.EventTypeComplete,
			Data:    buildResponse(st),
			IsFinal: true,
		})
	}()

	return &StreamingResponse{Stream: ch, Cancel: cancel}, nil
}

// sendEvent fills in the ID and timestamp and delivers the event unless the
// context is done. Non-final events are dropped after slowConsumerTimeout;
// the terminal event waits for the consumer.
func (s *ServiceImpl) sendEvent(ctx context.Context, ch chan<- types.StreamEvent, event types.StreamEvent) (sent bool) {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Context cancelled, not sending stream event", slog.String("eventType", event.Type))
		return false
	default:
	}

	var timeout <-chan time.Time
	if !event.IsFinal {
		timer := time.NewTimer(slowConsumerTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- event:
		return true
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Context cancelled while trying to send stream event", slog.String("eventType", event.Type))
		return false
	case <-timeout:
		s.logger.WarnContext(ctx, "Dropped stream event due to slow consumer", slog.String("eventType", event.Type))
		return false
	}
}
