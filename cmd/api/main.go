// Package main provides the entrypoint for the health-data verification API server.
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

	"github.com/fantasylifeleague/healthapi/internal/api"
	"github.com/fantasylifeleague/healthapi/internal/api/handler"
	"github.com/fantasylifeleague/healthapi/internal/api/middleware"
	"github.com/fantasylifeleague/healthapi/internal/audit"
	"github.com/fantasylifeleague/healthapi/internal/auth"
	"github.com/fantasylifeleague/healthapi/internal/config"
	"github.com/fantasylifeleague/healthapi/internal/database"
	"github.com/fantasylifeleague/healthapi/internal/featureflags"
	"github.com/fantasylifeleague/healthapi/internal/keys"
	"github.com/fantasylifeleague/healthapi/internal/resilience"
	"github.com/fantasylifeleague/healthapi/internal/signature"
	"github.com/fantasylifeleague/healthapi/internal/state"
	"github.com/fantasylifeleague/healthapi/internal/telemetry"
	"github.com/fantasylifeleague/healthapi/internal/verification"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootstrap.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := newLogger(cfg.App)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting health API")

	ctx := context.Background()

	// Initialize OpenTelemetry
	cfg.OTel.ServiceVersion = Version
	tp, err := telemetry.Init(ctx, cfg.OTel)
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

	if cfg.OTel.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTel.OTLPEndpoint).
			Float64("sample_ratio", cfg.OTel.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	verificationMetrics, err := verification.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize verification metrics")
	}

	// Connect to database when any store needs it
	var pool *pgxpool.Pool
	readiness := map[string]handler.ReadinessCheck{}
	if cfg.UsesPostgres() {
		pool, err = database.Connect(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		readiness["postgres"] = pool.Ping
		log.Info().
			Str("host", cfg.DB.Host).
			Int("port", cfg.DB.Port).
			Str("database", cfg.DB.Database).
			Msg("database connected")
	}

	registry := resilience.NewRegistry()

	keyStore, err := newKeyStore(cfg.Keys, pool, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize signing key store")
	}

	stateStore := newStateStore(cfg.State, pool, registry)

	recorder, closeRecorder, err := newAuditRecorder(ctx, cfg, pool, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audit sink")
	}
	defer closeRecorder()

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository:   newFlagRepository(cfg.FeatureFlags, pool),
		Logger:       log,
		CacheTTL:     cfg.FeatureFlags.CacheTTL,
		DefaultFlags: featureflags.DefaultFlags(cfg.Verification.EnableStatisticalAnalysis),
	})

	pipeline := verification.NewPipeline(verification.PipelineConfig{
		Verifier:   signature.NewVerifier(keyStore),
		Store:      stateStore,
		Thresholds: cfg.Verification,
		Flags:      flags,
		Recorder:   recorder,
		Metrics:    verificationMetrics,
		Logger:     log,
	})

	log.Info().
		Str("state_backend", cfg.State.Backend).
		Str("keys_backend", cfg.Keys.Backend).
		Str("audit_sink", cfg.Audit.Sink).
		Str("featureflags_backend", cfg.FeatureFlags.Backend).
		Dur("min_submission_interval", cfg.Verification.MinSubmissionInterval).
		Msg("verification pipeline initialized")

	var authenticator middleware.Authenticator
	if cfg.Auth.Required {
		authenticator = auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.Auth.JWTSigningKey,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			Expiry:     cfg.Auth.AccessTokenTTL,
		})
	} else {
		log.Warn().Msg("bearer authentication disabled - health endpoints are open")
	}
	if cfg.Auth.AdminAPIKey == "" {
		log.Warn().Msg("admin API key not configured - admin endpoints disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        cfg.App.Name,
		Metrics:            httpMetrics,
		HealthService:      pipeline,
		Authenticator:      authenticator,
		AdminAPIKey:        cfg.Auth.AdminAPIKey,
		FeatureFlagService: flags,
		Registry:           registry,
		ReadinessChecks:    readiness,
		RequestsPerMinute:  cfg.App.RequestsPerMinute,
		RequireTLS:         cfg.App.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

func newLogger(app config.AppConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(app.LogLevel)
	if err != nil || app.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", app.Name).
		Str("version", Version).
		Logger()
}

func newKeyStore(cfg config.KeysConfig, pool *pgxpool.Pool, registry *resilience.Registry) (keys.Store, error) {
	if cfg.Backend == config.BackendPostgres {
		guarded := keys.NewGuardedStore(keys.NewPostgresStore(pool), resilience.DefaultGuardConfig("key-store"))
		registry.Register(guarded.Guard())
		return guarded, nil
	}
	return keys.ParseStatic(cfg.Static)
}

func newStateStore(cfg config.StateConfig, pool *pgxpool.Pool, registry *resilience.Registry) state.Store {
	if cfg.Backend == config.BackendPostgres {
		guarded := state.NewGuardedStore(state.NewPostgresStore(pool), resilience.DefaultGuardConfig("state-store"))
		registry.Register(guarded.Guard())
		return guarded
	}
	return state.NewInMemoryStore()
}

func newFlagRepository(cfg config.FeatureFlagsConfig, pool *pgxpool.Pool) featureflags.Repository {
	if cfg.Backend == config.BackendPostgres {
		return featureflags.NewPostgresRepository(pool)
	}
	return featureflags.NewInMemoryRepository()
}

// newAuditRecorder returns the configured audit sink and a function releasing it.
func newAuditRecorder(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, registry *resilience.Registry, log zerolog.Logger) (audit.Recorder, func(), error) {
	noop := func() {}

	switch cfg.Audit.Sink {
	case config.SinkMemory:
		return audit.NewInMemoryRepository(), noop, nil
	case config.SinkPostgres:
		return audit.NewPostgresRepository(pool), noop, nil
	case config.SinkPubSub:
		publisher, err := audit.NewPubSubPublisher(ctx, audit.PubSubPublisherConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.AuditTopic,
			Guard:     resilience.DefaultGuardConfig("audit-pubsub"),
			Logger:    log,
		})
		if err != nil {
			return nil, nil, err
		}
		registry.Register(publisher.Guard())
		return publisher, func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close audit publisher")
			}
		}, nil
	default:
		return audit.NewLogRecorder(log), noop, nil
	}
}
