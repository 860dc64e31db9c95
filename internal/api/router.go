// Package api provides the HTTP API of the station engine.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/api/handler"
	"github.com/stationkit/stationkit/internal/api/middleware"
	"github.com/stationkit/stationkit/internal/api/models"
	"github.com/stationkit/stationkit/internal/api/response"
	"github.com/stationkit/stationkit/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	ServiceName string
	Logger      zerolog.Logger

	// Engine serves the data endpoints. Required.
	Engine *handler.Engine

	// Metrics may be nil.
	Metrics *middleware.Metrics

	// Upstreams reports remote source health on /v1/ops/ready. May be nil.
	Upstreams *resilience.Registry

	// Checks are probed by /v1/ops/ready.
	Checks map[string]handler.Pinger

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "stationkit-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewProblem(models.ProblemTypeMethodNotAllowed, "Method not allowed",
			http.StatusMethodNotAllowed, middleware.GetRequestID(r.Context())).
			WithDetail(r.Method+" is not supported on "+r.URL.Path))
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.Upstreams, cfg.Logger)
	for name, p := range cfg.Checks {
		opsHandler.AddCheck(name, p)
	}
	taxonomyHandler := handler.NewTaxonomyHandler(cfg.Engine)
	stationsHandler := handler.NewStationsHandler(cfg.Engine)
	interpolationHandler := handler.NewInterpolationHandler(cfg.Engine)

	queryRateLimit := middleware.RateLimitByIP(middleware.QueryRateLimit)
	heavyRateLimit := middleware.RateLimitByIP(middleware.HeavyRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		r.Route("/taxonomies", func(r chi.Router) {
			r.Use(queryRateLimit)
			r.Get("/", taxonomyHandler.Providers)
			r.Get("/{provider}/discover", taxonomyHandler.Discover)
		})

		r.With(queryRateLimit).Get("/stations", stationsHandler.List)

		// SQL queries build a database per call
		r.With(heavyRateLimit, middleware.RequireJSON).Post("/stations:query", stationsHandler.Query)

		r.With(heavyRateLimit).Get("/interpolation/candidates", interpolationHandler.Candidates)
	})

	return r
}
