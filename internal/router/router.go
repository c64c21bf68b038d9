package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	appLogger "github.com/FACorreiaa/go-travelmate/app/logger"
	appMiddleware "github.com/FACorreiaa/go-travelmate/app/middleware"
	"github.com/FACorreiaa/go-travelmate/internal/api/city"
	llmInteraction "github.com/FACorreiaa/go-travelmate/internal/api/llm_interaction"
	"github.com/FACorreiaa/go-travelmate/internal/api/tourism"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Config contains dependencies needed for the router setup.
// InteractionHandler is nil when the audit log is disabled and CityHandler
// is nil unless geocodes are cached in Postgres.
type Config struct {
	TourismHandler     *tourism.HandlerImpl
	InteractionHandler *llmInteraction.HandlerImpl
	CityHandler        *city.HandlerImpl
	AllowedOrigins     []string
	Logger             *slog.Logger
}

// SetupRouter initializes the main application router with the server-wide
// middleware chain and every public route.
func SetupRouter(cfg *Config) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(logger))
	r.Use(appMiddleware.Recover(logger))
	r.Use(middleware.StripSlashes)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}))
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		logger.InfoContext(r.Context(), "Root endpoint hit")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome to TravelMate API"))
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1/tourism", func(r chi.Router) {
		r.Post("/chat", cfg.TourismHandler.Chat)
		r.Post("/chat/stream", cfg.TourismHandler.ChatStream)
		r.Get("/health", cfg.TourismHandler.Health)
		if cfg.InteractionHandler != nil {
			r.Get("/interactions", cfg.InteractionHandler.ListInteractions)
		}
		if cfg.CityHandler != nil {
			r.Get("/cities", cfg.CityHandler.ListCities)
		}
	})

	// Paths served by the first release of the assistant.
	r.Route("/api/tourism", func(r chi.Router) {
		r.Post("/chat", cfg.TourismHandler.Chat)
		r.Get("/health", cfg.TourismHandler.Health)
	})

	return r
}
