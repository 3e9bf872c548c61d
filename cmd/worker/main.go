// Package main provides the entrypoint for the SunSafe background worker. It
// consumes location fix jobs from Pub/Sub, keeps a monitor of the devices it
// has seen, and sweeps them periodically. Burn alerts are owned by the API
// process; the worker's monitor computes results only.
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

	"github.com/sunsafe/sunsafe/internal/api/response"
	"github.com/sunsafe/sunsafe/internal/config"
	"github.com/sunsafe/sunsafe/internal/database"
	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/monitor"
	"github.com/sunsafe/sunsafe/internal/settings"
	"github.com/sunsafe/sunsafe/internal/telemetry"
	"github.com/sunsafe/sunsafe/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "sunsafe-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting SunSafe worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	engineMetrics, err := telemetry.NewEngineMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize engine metrics")
	}

	var settingsRepo settings.Repository = settings.NewInMemoryRepository()
	if cfg.Database.Enabled() {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		settingsRepo = settings.NewPostgresRepository(pool)
	}

	var fixStore location.Store = location.NewInMemoryStore()
	if cfg.Valkey.Addr != "" {
		client, err := location.NewValkeyClient(ctx, cfg.Valkey.Addr)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to valkey")
		}
		defer client.Close()
		fixStore = location.NewValkeyStore(client, cfg.Valkey.KeyPrefix, cfg.Valkey.FixTTL)
	}

	settingsService := settings.NewService(settings.ServiceConfig{Repository: settingsRepo, Logger: log})
	locationService := location.NewService(location.ServiceConfig{Store: fixStore, Logger: log})

	mon := monitor.NewService(monitor.ServiceConfig{
		Locations: locationService,
		Settings:  settingsService,
		Recorder:  engineMetrics,
		Settle:    cfg.Recompute.Settle,
		Logger:    log,
	})
	defer mon.Close()
	locationService.Subscribe(mon.OnFix)
	settingsService.Subscribe(mon.OnSettings)

	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config: worker.SweepConfig{
			Interval:   cfg.Recompute.SweepInterval,
			RunTimeout: cfg.Recompute.SweepTimeout,
		},
		Monitor: mon,
		Fixes:   locationService,
		Logger:  log,
	})
	jobs := worker.NewJobs(locationService, sweep, log)

	go sweep.RunPeriodic(ctx)

	// Pub/Sub is optional; without it only the periodic sweep runs.
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.JobSubscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.JobSubscription,
			Jobs:             jobs,
			Logger:           log,
			MaxOutstanding:   cfg.PubSub.MaxOutstanding,
			NumGoroutines:    cfg.PubSub.NumGoroutines,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close() //nolint:errcheck // best effort on shutdown

		go func() {
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Warn().Msg("no job subscription configured - running sweep only")
	}

	// Worker also exposes a health endpoint for Cloud Run
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": Version,
			"devices": len(mon.Devices()),
			"sweep":   sweep.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
