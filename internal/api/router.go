// Package api provides the HTTP API for SunSafe.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/api/handler"
	"github.com/sunsafe/sunsafe/internal/api/middleware"
	"github.com/sunsafe/sunsafe/internal/featureflags"
	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/monitor"
	"github.com/sunsafe/sunsafe/internal/notify"
	"github.com/sunsafe/sunsafe/internal/resilience"
	"github.com/sunsafe/sunsafe/internal/settings"
)

// DefaultServiceName is used for tracing when RouterConfig leaves it empty.
const DefaultServiceName = "sunsafe-api"

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// EstimateLimit and StandardLimit are requests per minute; zero keeps
	// the package defaults.
	EstimateLimit int
	StandardLimit int

	Authenticator      middleware.Authenticator
	FeatureFlagService *featureflags.Service
	SettingsService    *settings.Service
	LocationService    *location.Service
	Monitor            *monitor.Service
	Scheduler          *notify.Scheduler
	Endpoints          *resilience.Registry
	Checks             []handler.DependencyCheck

	// Now is the clock for request defaults. Tests pin it.
	Now func() time.Time
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
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
	r.Use(middleware.RequireJSON)

	var sunPathGate handler.SunPathGate
	if cfg.FeatureFlagService != nil {
		sunPathGate = cfg.FeatureFlagService
	}

	opsCfg := handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Checks:    cfg.Checks,
		Endpoints: cfg.Endpoints,
		Now:       cfg.Now,
	}
	if cfg.Monitor != nil {
		opsCfg.Monitor = cfg.Monitor
	}
	if cfg.Scheduler != nil {
		opsCfg.Alerts = cfg.Scheduler
	}

	meCfg := handler.MeConfig{
		Locations: cfg.LocationService,
		Monitor:   cfg.Monitor,
		Settings:  cfg.SettingsService,
		Logger:    cfg.Logger,
	}
	if cfg.Scheduler != nil {
		meCfg.Alerts = cfg.Scheduler
	}

	opsHandler := handler.NewOpsHandler(opsCfg)
	metadataHandler := handler.NewMetadataHandler()
	uvHandler := handler.NewUVHandler(sunPathGate, cfg.Now)
	settingsHandler := handler.NewSettingsHandler(cfg.SettingsService, cfg.Logger)
	meHandler := handler.NewMeHandler(meCfg)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Authenticator)

	estimateRateLimit := middleware.RateLimitByIP(middleware.PerMinute(cfg.EstimateLimit, middleware.EstimateRateLimit))
	standardLimit := middleware.PerMinute(cfg.StandardLimit, middleware.StandardRateLimit)
	standardRateLimit := middleware.RateLimitByIP(standardLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/enums", metadataHandler.GetEnums)
		})

		// Stateless engine endpoints (public)
		r.With(estimateRateLimit).Post("/uv:estimate", uvHandler.Estimate)
		r.With(estimateRateLimit).Get("/uv/sun-path", uvHandler.SunPath)

		// Me endpoints (authenticated) - user-based rate limiting
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(standardLimit))

			r.Get("/settings", settingsHandler.GetSettings)
			r.Put("/settings", settingsHandler.PutSettings)
			r.Delete("/settings", settingsHandler.ResetSettings)
			r.Post("/location", meHandler.ReportLocation)
			r.Get("/uv", meHandler.GetUV)
			r.Delete("/alerts/{deviceId}", meHandler.CancelAlert)
			r.Delete("/devices/{deviceId}", meHandler.RemoveDevice)
		})

		// Admin endpoints (authenticated)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
