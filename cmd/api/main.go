// Package main provides the entrypoint for the stationkit API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/api"
	"github.com/stationkit/stationkit/internal/api/handler"
	"github.com/stationkit/stationkit/internal/api/middleware"
	"github.com/stationkit/stationkit/internal/config"
	"github.com/stationkit/stationkit/internal/database"
	"github.com/stationkit/stationkit/internal/interpolation"
	"github.com/stationkit/stationkit/internal/provider"
	"github.com/stationkit/stationkit/internal/provider/mosmix"
	"github.com/stationkit/stationkit/internal/provider/resilience"
	"github.com/stationkit/stationkit/internal/provider/stationsapi"
	"github.com/stationkit/stationkit/internal/stations"
	"github.com/stationkit/stationkit/internal/store"
	"github.com/stationkit/stationkit/internal/taxonomy/dwd"
	"github.com/stationkit/stationkit/internal/telemetry"
	"github.com/stationkit/stationkit/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "stationkit-api"

	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.Logger(serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("source", cfg.Source.Kind).
		Msg("starting stationkit API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	httpMetrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}
	engineMetrics, err := telemetry.NewEngineMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine metrics")
	}

	upstreams := resilience.NewRegistry()
	checks := make(map[string]handler.Pinger)

	var client *stationsapi.Client
	if cfg.Source.BaseURL != "" {
		client = stationsapi.NewClient(stationsapi.ClientConfig{
			BaseURL:  cfg.Source.BaseURL,
			Timeout:  cfg.Source.Timeout,
			Registry: upstreams,
			Logger:   log,
		})
	}
	forecasts := mosmix.NewSource(mosmix.SourceConfig{Registry: upstreams, Logger: log})

	var catalog stations.Source
	switch cfg.Source.Kind {
	case config.SourceHTTP:
		mux := provider.NewMux(client)
		mux.Handle(dwd.MosmixLargeProvider, forecasts)
		mux.Handle(dwd.MosmixSmallProvider, forecasts)
		catalog = mux

	case config.SourcePostgres:
		pool := connect(ctx, cfg, log)
		defer pool.Close()

		repo := store.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare station schema")
		}
		checks["database"] = repo
		catalog = repo

	default:
		repo := store.NewMemoryRepository()
		catalog = repo
		go warmUp(ctx, cfg, repo, client, forecasts, engineMetrics, log)
	}

	var values interpolation.ValueSource
	if client != nil {
		values = client
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		ServiceName: serviceName,
		Logger:      log,
		Metrics:     httpMetrics,
		Upstreams:   upstreams,
		Checks:      checks,
		Engine: &handler.Engine{
			Taxonomies:    dwd.Registry(),
			Stations:      catalog,
			Values:        values,
			Settings:      cfg.RequestSettings(),
			Interpolation: cfg.InterpolationOptions(log),
			Metrics:       engineMetrics,
			Logger:        log,
		},
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) *pgxpool.Pool {
	dbConfig := cfg.DB()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Name).
		Msg("database connected")
	return pool
}

// warmUp fills the in-memory catalog store once at startup.
func warmUp(ctx context.Context, cfg *config.Config, repo store.Repository, client *stationsapi.Client, forecasts stations.Source, metrics *telemetry.EngineMetrics, log zerolog.Logger) {
	var fallback stations.Source
	if client != nil {
		fallback = client
	}
	upstream := provider.NewMux(fallback)
	upstream.Handle(dwd.MosmixLargeProvider, forecasts)
	upstream.Handle(dwd.MosmixSmallProvider, forecasts)

	catalogs, err := worker.ParseCatalogs(cfg.Sync.Catalogs)
	if err != nil {
		log.Error().Err(err).Msg("invalid sync catalogs")
		return
	}

	job := worker.NewSyncJob(worker.SyncJobConfig{
		Config:     worker.SyncConfig{Catalogs: catalogs},
		Taxonomies: dwd.Registry(),
		Source:     upstream,
		Store:      repo,
		Metrics:    metrics,
		Logger:     log,
	})
	job.Run(ctx)
}
