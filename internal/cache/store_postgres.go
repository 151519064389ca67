package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sunset/internal/domain"
	"sunset/pkg/platform/sentinel"
)

// Schema is the DDL for the durable cache table, applied at startup by the
// postgres bootstrap.
const Schema = `
CREATE TABLE IF NOT EXISTS eol_cache (
	key        TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS eol_cache_expires_at_idx ON eol_cache (expires_at);
`

// PostgresStore persists cached resolutions in PostgreSQL. Reads filter on
// expires_at so an expired row behaves exactly like an absent one; rows are
// physically removed by purges and overwritten by upserts.
type PostgresStore struct {
	db    *sql.DB
	clock Clock // injected clock for testability (defaults to time.Now)
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgresStore constructs a PostgreSQL-backed durable tier.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get fetches the record for key, treating expired rows as absent.
func (s *PostgresStore) Get(ctx context.Context, key string) (*domain.CacheRecord, error) {
	var payload []byte
	query := `SELECT record FROM eol_cache WHERE key = $1 AND expires_at > $2`
	err := s.db.QueryRowContext(ctx, query, key, s.clock()).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("postgres get %q: %w", key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres get %q: %w", key, err)
	}

	var rec domain.CacheRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("postgres decode %q: %w", key, err)
	}
	return &rec, nil
}

// Set upserts the record under its key.
func (s *PostgresStore) Set(ctx context.Context, rec domain.CacheRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("postgres encode %q: %w", rec.Key, err)
	}
	query := `
		INSERT INTO eol_cache (key, record, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			record = EXCLUDED.record,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, rec.Key, payload, rec.ExpiresAt); err != nil {
		return fmt.Errorf("postgres set %q: %w", rec.Key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM eol_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres delete %q: %w", key, err)
	}
	return nil
}

// DeleteAll clears the table.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM eol_cache`); err != nil {
		return fmt.Errorf("postgres purge: %w", err)
	}
	return nil
}

// Health pings the backend.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
