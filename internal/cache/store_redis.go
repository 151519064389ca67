package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"sunset/internal/domain"
	"sunset/pkg/platform/sentinel"
)

var (
	redisGetDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sunset_cache_redis_get_duration_ms",
		Help:    "Latency of durable cache reads from Redis in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
)

const (
	// Redis key prefix for cached resolutions
	redisKeyPrefix = "sunset:eol:"

	scanBatchSize = 100
)

// RedisStore is a Redis-backed durable tier. Expiry is enforced natively by
// Redis: records are written with a TTL matching their ExpiresAt.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed durable tier. The client lifecycle
// is managed externally.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get fetches and decodes the record for key.
func (s *RedisStore) Get(ctx context.Context, key string) (*domain.CacheRecord, error) {
	start := time.Now()
	defer func() {
		redisGetDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	payload, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get %q: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}

	var rec domain.CacheRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("redis decode %q: %w", key, err)
	}
	return &rec, nil
}

// Set writes the record with a TTL derived from its ExpiresAt.
func (s *RedisStore) Set(ctx context.Context, rec domain.CacheRecord) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("record %q already expired: %w", rec.Key, sentinel.ErrInvalidState)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis encode %q: %w", rec.Key, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+rec.Key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", rec.Key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}
	return nil
}

// DeleteAll removes every key under the cache prefix using SCAN, so other
// keyspaces sharing the Redis instance are untouched.
func (s *RedisStore) DeleteAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatchSize {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis purge batch: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis purge batch: %w", err)
		}
	}
	return nil
}

// Health pings the backend.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
