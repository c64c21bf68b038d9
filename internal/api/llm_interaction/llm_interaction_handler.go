package llmInteraction

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travelmate/internal/api"
)

type HandlerImpl struct {
	service LlmInteractionService
	logger  *slog.Logger
}

func NewHandlerImpl(service LlmInteractionService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

func (h *HandlerImpl) ListInteractions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("LlmInteractionHandler").Start(r.Context(), "ListInteractions", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/tourism/interactions"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListInteractions"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			span.SetStatus(codes.Error, "invalid limit")
			api.ErrorResponse(w, r, http.StatusBadRequest, "Query parameter 'limit' must be a positive integer.")
			return
		}
		limit = n
	}

	interactions, err := h.service.ListRecent(ctx, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list interactions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "service error")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load interactions.")
		return
	}

	span.SetStatus(codes.Ok, "interactions listed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"interactions": interactions,
		"count":        len(interactions),
	})
}
