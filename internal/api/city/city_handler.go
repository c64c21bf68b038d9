package city

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-travelmate/internal/api"
)

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewCityHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
	}
}

// ListCities handles GET /cities and returns the most recently geocoded places.
func (h *HandlerImpl) ListCities(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "ListCities")
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListCities"))

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

	cities, err := h.service.ListCities(ctx, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to retrieve cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve cities.")
		return
	}

	l.InfoContext(ctx, "Successfully returned cities", slog.Int("count", len(cities)))
	span.SetStatus(codes.Ok, "Cities returned successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"cities": cities,
		"count":  len(cities),
	})
}
