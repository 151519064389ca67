// Package postgres connects the durable cache tier's Postgres backend.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"

	"sunset/internal/cache"
	"sunset/internal/platform/config"
)

// DB wraps the sql.DB pool with health checking capabilities.
type DB struct {
	*sql.DB
}

// New opens a Postgres pool from the provided configuration, waits for the
// database to answer pings, and applies the cache schema.
func New(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// The database is often still starting when we are; retry the first
	// ping with exponential backoff up to the connect timeout.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.ConnectTimeout
	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logger.WarnContext(ctx, "postgres not ready, retrying",
			"error", err,
			"next_attempt_in", next.String(),
		)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, cache.Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &DB{DB: db}, nil
}

// Health checks if the Postgres connection is healthy.
func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}
