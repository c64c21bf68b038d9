package tourism

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/go-travelmate/app/middleware"
	"github.com/FACorreiaa/go-travelmate/internal/api"
	generativeAI "github.com/FACorreiaa/go-travelmate/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

const heartbeatInterval = 15 * time.Second

type HandlerImpl struct {
	service  Service
	provider generativeAI.ProviderInfo
	logger   *slog.Logger

	heartbeat time.Duration
}

func NewHandlerImpl(service Service, provider generativeAI.ProviderInfo, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service:   service,
		provider:  provider,
		logger:    logger,
		heartbeat: heartbeatInterval,
	}
}

// decodeChatRequest reads, schema-validates and decodes the request body.
// Errors are safe to show to the caller.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*types.TourismRequest, error) {
	raw, err := api.ReadJSONBody(w, r)
	if err != nil {
		return nil, err
	}
	if err := validateChatRequest(raw); err != nil {
		return nil, err
	}
	var req types.TourismRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("error decoding JSON body: %w", err)
	}
	return &req, nil
}

func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourismHandler").Start(r.Context(), "Chat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/tourism/chat"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Chat"))

	req, err := decodeChatRequest(w, r)
	if err != nil {
		l.WarnContext(ctx, "Rejected chat request", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Process(ctx, req.Query, req.ConversationHistory)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "process failed")
		if errors.Is(err, ErrEmptyQuery) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to process chat request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, appMiddleware.GenericFailureMessage)
		return
	}

	span.SetStatus(codes.Ok, "chat processed")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

func (h *HandlerImpl) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TourismHandler").Start(r.Context(), "ChatStream", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/tourism/chat/stream"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ChatStream"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	req, err := decodeChatRequest(w, r)
	if err != nil {
		l.WarnContext(ctx, "Rejected stream request", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	streamResp, err := h.service.ProcessStream(ctx, req.Query, req.ConversationHistory)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream start failed")
		if errors.Is(err, ErrEmptyQuery) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Failed to start stream", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, appMiddleware.GenericFailureMessage)
		return
	}
	defer streamResp.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	finished := false
	for {
		select {
		case event, ok := <-streamResp.Stream:
			if !ok {
				if !finished && ctx.Err() == nil {
					l.ErrorContext(ctx, "Stream closed without a terminal event")
					h.writeSSEError(w, appMiddleware.GenericFailureMessage)
				}
				l.DebugContext(ctx, "Stream closed")
				span.SetStatus(codes.Ok, "stream finished")
				return
			}
			finished = finished || event.IsFinal

			data, err := json.Marshal(event)
			if err != nil {
				l.ErrorContext(ctx, "Failed to marshal event", slog.Any("error", err))
				continue
			}

			fmt.Fprintf(w, "id: %s\n", event.EventID)
			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case <-ctx.Done():
			l.InfoContext(ctx, "Client disconnected")
			return
		}
	}
}

// writeSSEError emits a terminal error event on an already open stream.
func (h *HandlerImpl) writeSSEError(w http.ResponseWriter, errorMsg string) {
	event := types.StreamEvent{
		Type:      types.EventTypeError,
		Message:   errorMsg,
		Timestamp: time.Now(),
		EventID:   uuid.New().String(),
		IsFinal:   true,
	}
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "id: %s\n", event.EventID)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (h *HandlerImpl) Health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"service":  "TravelMate",
		"provider": h.provider.Provider,
		"model":    h.provider.Model,
		"pipeline": []string{StepAnalyze, StepPlanning, StepWeather, StepPlaces, StepSynthesize},
	})
}
