package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-travelmate/app/db"
	"github.com/FACorreiaa/go-travelmate/config"
	"github.com/FACorreiaa/go-travelmate/internal/api/city"
	generativeAI "github.com/FACorreiaa/go-travelmate/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travelmate/internal/api/geo"
	llmInteraction "github.com/FACorreiaa/go-travelmate/internal/api/llm_interaction"
	"github.com/FACorreiaa/go-travelmate/internal/api/places"
	"github.com/FACorreiaa/go-travelmate/internal/api/tourism"
	"github.com/FACorreiaa/go-travelmate/internal/api/weather"
)

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	Logger             *slog.Logger
	Pool               *pgxpool.Pool
	Redis              *redis.Client
	LLM                *generativeAI.InstrumentedClient
	TourismService     *tourism.ServiceImpl
	TourismHandler     *tourism.HandlerImpl
	InteractionHandler *llmInteraction.HandlerImpl
	CityHandler        *city.HandlerImpl
}

// NewContainer initializes and returns a new dependency container.
// Postgres is only touched when repositories.postgres.enabled is set, and
// Redis only when the geocode cache backend is "redis".
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	llm, err := generativeAI.NewClientFromConfig(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	c.LLM = llm

	if cfg.Repositories.Postgres.Enabled {
		if err := c.initPostgres(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	cache, err := c.locationCache(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	geocoder := geo.NewClient(cfg.Geocoder, cache, logger)
	weatherClient := weather.NewClient(cfg.Weather, logger)
	placesClient, err := places.NewClient(cfg.Places, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	// A nil *LlmInteractionServiceImpl must not reach the orchestrator as a
	// non-nil interface.
	var recorder llmInteraction.Recorder
	if c.Pool != nil {
		repo := llmInteraction.NewPostgresLlmInteractionRepo(c.Pool, logger)
		svc := llmInteraction.NewLlmInteractionService(repo, logger)
		recorder = svc
		c.InteractionHandler = llmInteraction.NewHandlerImpl(svc, logger)
	}

	c.TourismService = tourism.NewServiceImpl(llm, geocoder, weatherClient, placesClient, recorder, cfg.Orchestrator, logger)
	c.TourismHandler = tourism.NewHandlerImpl(c.TourismService, llm.Info(), logger)
	return c, nil
}

func (c *Container) locationCache(ctx context.Context) (geo.LocationCache, error) {
	cacheCfg := c.Config.Geocoder.Cache
	switch strings.ToLower(cacheCfg.Backend) {
	case "", "memory":
		return geo.NewMemoryCache(cacheCfg.TTL, cacheCfg.CleanupInterval), nil
	case "redis":
		client, err := database.NewRedisClient(ctx, c.Config.Repositories.Redis, c.Logger)
		if err != nil {
			return nil, err
		}
		c.Redis = client
		return geo.NewRedisCache(client, cacheCfg.TTL), nil
	case "postgres":
		if c.Pool == nil {
			return nil, errors.New("geocoder cache backend postgres requires repositories.postgres.enabled")
		}
		svc := city.NewCityService(city.NewCityRepository(c.Pool, c.Logger), cacheCfg.TTL, c.Logger)
		c.CityHandler = city.NewCityHandler(svc, c.Logger)
		return svc, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported geocoder cache backend %q", cacheCfg.Backend)
	}
}

func (c *Container) initPostgres(ctx context.Context) error {
	dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
	if err != nil {
		c.Logger.Error("Failed to generate database config", slog.Any("error", err))
		return err
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		c.Logger.Error("Failed to run database migrations", slog.Any("error", err))
		return err
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, c.Logger)
	if err != nil {
		c.Logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return err
	}
	c.Pool = pool

	if !c.WaitForDB(ctx) {
		return errors.New("database not ready after waiting")
	}
	return nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Error closing redis client", slog.Any("error", err))
		}
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	if c.Pool == nil {
		return false
	}
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
