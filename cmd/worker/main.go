// Package main provides the entrypoint for the stationkit catalog worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stationkit/stationkit/internal/api/handler"
	"github.com/stationkit/stationkit/internal/api/middleware"
	"github.com/stationkit/stationkit/internal/config"
	"github.com/stationkit/stationkit/internal/database"
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
	const serviceName = "stationkit-worker"

	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.Logger(serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting stationkit worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := telemetry.NewEngineMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine metrics")
	}

	upstreams := resilience.NewRegistry()

	var fallback stations.Source
	if cfg.Source.BaseURL != "" {
		fallback = stationsapi.NewClient(stationsapi.ClientConfig{
			BaseURL:  cfg.Source.BaseURL,
			Timeout:  cfg.Source.Timeout,
			Registry: upstreams,
			Logger:   log,
		})
	}
	forecasts := mosmix.NewSource(mosmix.SourceConfig{Registry: upstreams, Logger: log})
	upstream := provider.NewMux(fallback)
	upstream.Handle(dwd.MosmixLargeProvider, forecasts)
	upstream.Handle(dwd.MosmixSmallProvider, forecasts)

	ops := handler.NewOpsHandler(Version, upstreams, log)

	var repo store.Repository
	switch cfg.Source.Kind {
	case config.SourcePostgres:
		pool, err := database.Connect(ctx, cfg.DB())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pg := store.NewPostgresRepository(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare station schema")
		}
		ops.AddCheck("database", pg)
		repo = pg
	case config.SourceMemory:
		log.Warn().Msg("syncing into process memory; catalogs are lost on exit")
		repo = store.NewMemoryRepository()
	default:
		log.Fatal().Str("source", cfg.Source.Kind).Msg("worker needs a memory or postgres store")
	}

	catalogs, err := worker.ParseCatalogs(cfg.Sync.Catalogs)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid sync catalogs")
	}

	job := worker.NewSyncJob(worker.SyncJobConfig{
		Config:     worker.SyncConfig{Catalogs: catalogs},
		Taxonomies: dwd.Registry(),
		Source:     upstream,
		Store:      repo,
		Metrics:    metrics,
		Logger:     log,
	})
	ops.AddCheck("catalogs", handler.PingerFunc(job.Check))

	// Health endpoints for the container platform.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ContentTypeJSON)
	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go job.Run(ctx)

	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Subscription != "" {
		sub, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Dispatcher:       worker.NewDispatcher(job, log),
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := sub.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Info().Msg("pubsub not configured; catalogs sync once at startup")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
