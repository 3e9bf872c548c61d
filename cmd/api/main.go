// Package main provides the entrypoint for the SunSafe API server.
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
	"github.com/valkey-io/valkey-go"

	"github.com/sunsafe/sunsafe/internal/api"
	"github.com/sunsafe/sunsafe/internal/api/handler"
	"github.com/sunsafe/sunsafe/internal/api/middleware"
	"github.com/sunsafe/sunsafe/internal/auth"
	"github.com/sunsafe/sunsafe/internal/config"
	"github.com/sunsafe/sunsafe/internal/database"
	"github.com/sunsafe/sunsafe/internal/featureflags"
	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/monitor"
	"github.com/sunsafe/sunsafe/internal/notify"
	"github.com/sunsafe/sunsafe/internal/resilience"
	"github.com/sunsafe/sunsafe/internal/settings"
	"github.com/sunsafe/sunsafe/internal/telemetry"
	"github.com/sunsafe/sunsafe/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = api.DefaultServiceName

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SunSafe API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Auth.SigningKey == config.DevSigningKey {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	ctx := context.Background()

	// Initialize OpenTelemetry
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

	var checks []handler.DependencyCheck

	// Settings and feature flags live in Postgres when it is configured.
	var (
		settingsRepo settings.Repository     = settings.NewInMemoryRepository()
		flagsRepo    featureflags.Repository = featureflags.NewInMemoryRepository()
		pool         *pgxpool.Pool
	)
	if cfg.Database.Enabled() {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		settingsRepo = settings.NewPostgresRepository(pool)
		flagsRepo = featureflags.NewPostgresRepository(pool)
		checks = append(checks, handler.DependencyCheck{Name: "database", Check: pool.Ping})
	} else {
		log.Warn().Msg("no database configured - settings and feature flags are in memory")
	}

	// Fixes go to Valkey when configured so every instance sees them.
	var fixStore location.Store = location.NewInMemoryStore()
	if cfg.Valkey.Addr != "" {
		client, err := location.NewValkeyClient(ctx, cfg.Valkey.Addr)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to valkey")
		}
		defer client.Close()
		fixStore = location.NewValkeyStore(client, cfg.Valkey.KeyPrefix, cfg.Valkey.FixTTL)
		checks = append(checks, handler.DependencyCheck{Name: "valkey", Check: valkeyPing(client)})
		log.Info().Str("addr", cfg.Valkey.Addr).Msg("valkey connected")
	}

	flagsService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagsRepo,
		Logger:     log,
		CacheTTL:   cfg.Flags.CacheTTL,
	})
	settingsService := settings.NewService(settings.ServiceConfig{
		Repository: settingsRepo,
		Logger:     log,
	})
	locationService := location.NewService(location.ServiceConfig{
		Store:  fixStore,
		Logger: log,
	})

	endpoints := resilience.NewRegistry()
	publisher, closePublisher, err := notify.NewPublisher(ctx, notify.PublisherConfig{
		Kind:         cfg.Alerts.Publisher,
		Logger:       log,
		ProjectID:    cfg.PubSub.ProjectID,
		PubSubTopic:  cfg.PubSub.AlertTopic,
		WebhookURL:   cfg.Alerts.WebhookURL,
		Endpoints:    endpoints,
		KafkaBrokers: cfg.Kafka.Brokers,
		KafkaTopic:   cfg.Kafka.AlertTopic,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert publisher")
	}
	defer func() {
		if err := closePublisher(); err != nil {
			log.Error().Err(err).Msg("failed to close alert publisher")
		}
	}()
	log.Info().Str("publisher", publisher.Name()).Msg("alert publisher initialized")

	scheduler := notify.NewScheduler(notify.SchedulerConfig{
		Publisher:      publisher,
		Flags:          flagsService,
		Logger:         log,
		PublishTimeout: cfg.Alerts.PublishTimeout,
	})
	defer scheduler.Close()

	mon := monitor.NewService(monitor.ServiceConfig{
		Locations: locationService,
		Settings:  settingsService,
		Alerts:    scheduler,
		Recorder:  engineMetrics,
		Settle:    cfg.Recompute.Settle,
		Logger:    log,
	})
	defer mon.Close()

	locationService.Subscribe(mon.OnFix)
	settingsService.Subscribe(mon.OnSettings)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.Auth.SigningKey,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})

	// The sweep keeps results following the sun between fixes.
	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config: worker.SweepConfig{
			Interval:   cfg.Recompute.SweepInterval,
			RunTimeout: cfg.Recompute.SweepTimeout,
		},
		Monitor: mon,
		Fixes:   locationService,
		Logger:  log,
	})
	locationService.Subscribe(func(_ context.Context, fix location.Fix) { sweep.Observe(fix) })
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweep.RunPeriodic(sweepCtx)

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            httpMetrics,
		RequireTLS:         cfg.IsProduction(),
		EstimateLimit:      cfg.HTTP.EstimatePerMinute,
		StandardLimit:      cfg.HTTP.StandardPerMinute,
		Authenticator:      jwtService,
		FeatureFlagService: flagsService,
		SettingsService:    settingsService,
		LocationService:    locationService,
		Monitor:            mon,
		Scheduler:          scheduler,
		Endpoints:          endpoints,
		Checks:             checks,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopSweep()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

func valkeyPing(client valkey.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Do(ctx, client.B().Ping().Build()).Error()
	}
}
