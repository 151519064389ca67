package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sunset/internal/audit"
	"sunset/internal/cache"
	"sunset/internal/confidence"
	"sunset/internal/eol"
	"sunset/internal/eol/handler"
	eolmetrics "sunset/internal/eol/metrics"
	httpapi "sunset/internal/http"
	"sunset/internal/intake"
	intakemetrics "sunset/internal/intake/metrics"
	"sunset/internal/platform/config"
	"sunset/internal/platform/httpserver"
	"sunset/internal/platform/logger"
	"sunset/internal/platform/postgres"
	"sunset/internal/platform/redis"
	"sunset/internal/ratelimit"
	"sunset/internal/resolver/source"
	"sunset/pkg/platform/secrets"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("sunset failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	log := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable cache tier, if one is configured. Both backends degrade to
	// memory-only when absent.
	var durable cache.DurableStore
	switch cfg.Cache.DurableBackend {
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = client.Close() }()
		durable = cache.NewRedisStore(client.Client)
	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.Postgres, log)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer func() { _ = db.Close() }()
		durable = cache.NewPostgresStore(db.DB)
	}

	policy := confidence.DefaultPolicy()
	policy.ShortTTL = cfg.Cache.ShortTTL
	policy.MediumTTL = cfg.Cache.MediumTTL
	policy.LongTTL = cfg.Cache.LongTTL

	manager, err := cache.NewManager(cache.NewMemoryStore(), durable, policy, cache.WithLogger(log))
	if err != nil {
		return fmt.Errorf("cache manager: %w", err)
	}
	manager.Start(ctx)
	defer manager.Close()

	sources, err := source.DefaultRegistry(source.Config{
		UserAgent:        cfg.Sources.UserAgent,
		EndOfLifeBaseURL: cfg.Sources.EndOfLifeBaseURL,
		MicrosoftBaseURL: cfg.Sources.MicrosoftBaseURL,
		RedHatBaseURL:    cfg.Sources.RedHatBaseURL,
		CanonicalBaseURL: cfg.Sources.CanonicalBaseURL,
		PerSourceTimeout: cfg.Sources.PerSourceTimeout,
		Logger:           log,
	})
	if err != nil {
		return fmt.Errorf("source registry: %w", err)
	}

	service, err := eol.New(sources, manager, policy,
		eol.WithLogger(log),
		eol.WithMetrics(eolmetrics.New()),
		eol.WithResolveTimeout(cfg.Resolve.Timeout),
		eol.WithBatchConcurrency(cfg.Resolve.BatchConcurrency),
	)
	if err != nil {
		return fmt.Errorf("eol service: %w", err)
	}

	verifier := secrets.NewVerifier(cfg.Admin.JWTSigningKey, cfg.Admin.JWTIssuer, cfg.Admin.APIKeyHashes)
	if !verifier.Enabled() {
		log.Warn("admin credentials not configured, admin routes are open")
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimitEnabled() {
		limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	recorder := audit.NewRecorder(audit.NewMemoryStore(0))

	router := httpapi.New(httpapi.Deps{
		Handler: handler.New(service, log,
			handler.WithMaxBatchSize(cfg.Resolve.MaxBatchSize),
			handler.WithAudit(recorder),
		),
		Verifier: verifier,
		Logger:   log,
		Ready:    service,
		Limiter:  limiter,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	if cfg.IntakeEnabled() {
		consumer, err := intake.New(cfg.Kafka, service,
			intake.WithLogger(log),
			intake.WithMetrics(intakemetrics.New()),
		)
		if err != nil {
			return fmt.Errorf("intake consumer: %w", err)
		}
		defer consumer.Close()
		go func() {
			// A dead intake pipeline degrades the service but the HTTP
			// surface keeps answering; operators see it here and in the
			// consumer group lag.
			if err := consumer.Run(ctx); err != nil {
				log.Error("intake consumer stopped", "error", err)
			}
		}()
	}

	log.Info("sunset started",
		"addr", cfg.Server.Addr,
		"durable_backend", cfg.Cache.DurableBackend,
		"intake", cfg.IntakeEnabled(),
		"rate_limit", cfg.RateLimitEnabled(),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("sunset stopped")
	return nil
}
