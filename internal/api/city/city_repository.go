package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

var _ CityRepository = (*PostgresCityRepository)(nil)

type CityRepository interface {
	SaveCity(ctx context.Context, city types.CityDetail) error
	// FindCityByKey returns (nil, nil) when no row newer than notBefore exists.
	FindCityByKey(ctx context.Context, key string, notBefore time.Time) (*types.CityDetail, error)
	ListCities(ctx context.Context, limit int) ([]types.CityDetail, error)
}

// DBTX is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresCityRepository struct {
	logger *slog.Logger
	pgpool DBTX
}

func NewCityRepository(pgpool DBTX, logger *slog.Logger) *PostgresCityRepository {
	return &PostgresCityRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

// SaveCity upserts on the lookup key, so a refreshed resolution replaces the
// stale one.
func (r *PostgresCityRepository) SaveCity(ctx context.Context, city types.CityDetail) error {
	query := `
        INSERT INTO cities (
            id, lookup_key, display_name, latitude, longitude, resolved_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (lookup_key) DO UPDATE SET
            display_name = EXCLUDED.display_name,
            latitude     = EXCLUDED.latitude,
            longitude    = EXCLUDED.longitude,
            resolved_at  = EXCLUDED.resolved_at
    `
	_, err := r.pgpool.Exec(ctx, query,
		city.ID, city.LookupKey, city.DisplayName, city.Latitude, city.Longitude, city.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save city: %w", err)
	}
	return nil
}

func (r *PostgresCityRepository) FindCityByKey(ctx context.Context, key string, notBefore time.Time) (*types.CityDetail, error) {
	query := `
        SELECT id, lookup_key, display_name, latitude, longitude, resolved_at
        FROM cities
        WHERE lookup_key = $1 AND resolved_at >= $2
    `
	var c types.CityDetail
	err := r.pgpool.QueryRow(ctx, query, key, notBefore).Scan(
		&c.ID, &c.LookupKey, &c.DisplayName, &c.Latitude, &c.Longitude, &c.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find city: %w", err)
	}
	return &c, nil
}

func (r *PostgresCityRepository) ListCities(ctx context.Context, limit int) ([]types.CityDetail, error) {
	query := `
        SELECT id, lookup_key, display_name, latitude, longitude, resolved_at
        FROM cities
        ORDER BY resolved_at DESC
        LIMIT $1
    `
	rows, err := r.pgpool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cities: %w", err)
	}
	defer rows.Close()

	cities := make([]types.CityDetail, 0, limit)
	for rows.Next() {
		var c types.CityDetail
		if err := rows.Scan(&c.ID, &c.LookupKey, &c.DisplayName, &c.Latitude, &c.Longitude, &c.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan city row: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating city rows: %w", err)
	}
	return cities, nil
}
