package cache

import (
	"context"
	"time"

	"sunset/internal/domain"
)

// Clock supplies the current time.
type Clock func() time.Time

// DurableStore is the persistence surface behind the memory tier. Redis and
// Postgres implementations both satisfy it; deployments pick one via config.
//
// Get returns sentinel.ErrNotFound (wrapped) when the key is absent or
// expired. Any other error marks the backend unavailable and feeds the
// manager's degrade path.
type DurableStore interface {
	Get(ctx context.Context, key string) (*domain.CacheRecord, error)
	Set(ctx context.Context, rec domain.CacheRecord) error
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
	Health(ctx context.Context) error
}
