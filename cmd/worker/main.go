// Package main provides the audit worker: it consumes submission audit records
// from Pub/Sub and stores them in PostgreSQL.
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

	"github.com/fantasylifeleague/healthapi/internal/api/handler"
	"github.com/fantasylifeleague/healthapi/internal/api/middleware"
	"github.com/fantasylifeleague/healthapi/internal/audit"
	"github.com/fantasylifeleague/healthapi/internal/config"
	"github.com/fantasylifeleague/healthapi/internal/database"
	"github.com/fantasylifeleague/healthapi/internal/telemetry"
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

	serviceName := cfg.App.Name + "-worker"
	log := newLogger(cfg.App.LogLevel, serviceName)

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting audit worker")

	if cfg.PubSub.ProjectID == "" || cfg.PubSub.AuditSubscription == "" {
		log.Fatal().Msg("pubsub.project_id and pubsub.audit_subscription are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg.OTel.ServiceName = serviceName
	cfg.OTel.ServiceVersion = Version
	tp, err := telemetry.Init(ctx, cfg.OTel)
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

	pool, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	consumer, err := audit.NewConsumer(ctx, audit.ConsumerConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		SubscriptionName: cfg.PubSub.AuditSubscription,
		Store:            audit.NewPostgresRepository(pool),
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create audit consumer")
	}
	defer func() {
		if closeErr := consumer.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close audit consumer")
		}
	}()

	// Health endpoints for the container platform
	server := &http.Server{
		Addr: ":" + cfg.Worker.Port,
		Handler: newHealthRouter(serviceName, map[string]handler.ReadinessCheck{
			"postgres": pool.Ping,
		}, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
	case err := <-consumerDone:
		if err != nil {
			log.Error().Err(err).Msg("audit consumer stopped")
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func newLogger(logLevel, serviceName string) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()
}

func newHealthRouter(serviceName string, checks map[string]handler.ReadinessCheck, log zerolog.Logger) http.Handler {
	ops := handler.NewOpsHandler(serviceName, Version, BuildTime, nil, checks)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.ContentTypeJSON)
	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)
	return r
}
