package city

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travelmate/internal/api/geo"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

const (
	defaultTTL       = 24 * time.Hour
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var _ Service = (*ServiceImpl)(nil)

// Service is the durable geocode cache. It plugs into the geocoder as a
// geo.LocationCache and lists what it holds.
type Service interface {
	geo.LocationCache
	ListCities(ctx context.Context, limit int) ([]types.CityDetail, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   CityRepository
	ttl    time.Duration
	now    func() time.Time
}

func NewCityService(repo CityRepository, ttl time.Duration, logger *slog.Logger) *ServiceImpl {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns a resolution younger than the TTL, or (nil, nil).
func (s *ServiceImpl) Get(ctx context.Context, name string) (*types.LocationData, error) {
	key := geo.CacheKey(name)
	c, err := s.repo.FindCityByKey(ctx, key, s.now().Add(-s.ttl))
	if err != nil || c == nil {
		return nil, err
	}
	return &types.LocationData{DisplayName: c.DisplayName, Lat: c.Latitude, Lon: c.Longitude}, nil
}

func (s *ServiceImpl) Set(ctx context.Context, name string, loc *types.LocationData) error {
	if loc == nil {
		return nil
	}
	return s.repo.SaveCity(ctx, types.CityDetail{
		ID:          uuid.New(),
		LookupKey:   geo.CacheKey(name),
		DisplayName: loc.DisplayName,
		Latitude:    loc.Lat,
		Longitude:   loc.Lon,
		ResolvedAt:  s.now().UTC(),
	})
}

func (s *ServiceImpl) ListCities(ctx context.Context, limit int) ([]types.CityDetail, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	ctx, span := otel.Tracer("CityService").Start(ctx, "ListCities", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	cities, err := s.repo.ListCities(ctx, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}
	span.SetStatus(codes.Ok, "cities listed")
	return cities, nil
}
