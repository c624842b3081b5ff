// Package api provides the HTTP API for the health-data verification service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fantasylifeleague/healthapi/internal/api/handler"
	"github.com/fantasylifeleague/healthapi/internal/api/middleware"
	"github.com/fantasylifeleague/healthapi/internal/featureflags"
	"github.com/fantasylifeleague/healthapi/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// HealthService verifies submissions and reports statistics.
	HealthService handler.HealthService

	// Authenticator validates bearer tokens. Nil leaves the health routes open.
	Authenticator middleware.Authenticator

	// AdminAPIKey guards the admin routes. Empty disables them.
	AdminAPIKey        string
	FeatureFlagService *featureflags.Service

	Registry        *resilience.Registry
	ReadinessChecks map[string]handler.ReadinessCheck

	// RequestsPerMinute is the per-client request budget on the health routes.
	RequestsPerMinute int
	RequireTLS        bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "health-api"
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

	opsHandler := handler.NewOpsHandler(serviceName, cfg.Version, cfg.BuildTime, cfg.Registry, cfg.ReadinessChecks)

	authMiddleware := passThrough
	if cfg.Authenticator != nil {
		authMiddleware = middleware.Auth(cfg.Authenticator)
	}

	r.Get("/", opsHandler.Root)

	r.Route("/api", func(r chi.Router) {
		if cfg.HealthService != nil {
			healthHandler := handler.NewHealthHandler(cfg.HealthService, cfg.Logger)

			r.Route("/health", func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(middleware.PerMinute(cfg.RequestsPerMinute)))
				r.Use(authMiddleware)
				r.With(middleware.RequireJSON).Post("/submit", healthHandler.Submit)
				r.Get("/status/{userId}", healthHandler.Status)
			})
		}

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		if cfg.AdminAPIKey != "" && cfg.FeatureFlagService != nil {
			featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminKey(cfg.AdminAPIKey))
				r.Use(middleware.RateLimitByIP(middleware.AdminRateLimit))

				r.Route("/feature-flags", func(r chi.Router) {
					r.Get("/", featureFlagsHandler.ListFeatureFlags)
					r.With(middleware.RequireJSON).Put("/", featureFlagsHandler.UpsertFeatureFlags)
					r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
					r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
				})
			})
		}
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
