// Package cache implements the two-tier resolution cache: a process-local
// memory tier in front of an optional durable tier (Redis or Postgres).
// A single-flight group collapses concurrent resolutions of the same key,
// and a circuit breaker degrades the manager to memory-only while the
// durable backend misbehaves.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"sunset/internal/confidence"
	"sunset/internal/domain"
	"sunset/pkg/platform/circuit"
	"sunset/pkg/platform/sentinel"
)

const (
	defaultJanitorInterval = time.Minute
	probeTimeout           = 2 * time.Second
)

// ResolveFunc produces a fresh resolution for a key on cache miss.
type ResolveFunc func(ctx context.Context) (*domain.ResolvedEOL, error)

// Stats is a point-in-time snapshot of cache activity. Hits and misses are
// counted per cache decision: callers coalesced into an in-flight resolution
// are absorbed by it and counted once. EntriesByTier reflects the memory
// tier, bucketed by the TTL tier each entry's confidence maps to.
type Stats struct {
	HitCount      int64                   `json:"hit_count"`
	MissCount     int64                   `json:"miss_count"`
	InFlightCount int64                   `json:"in_flight_count"`
	EntriesByTier map[confidence.Tier]int `json:"entries_by_ttl_tier"`
	DurableState  string                  `json:"durable_state"`
}

// Manager coordinates the cache tiers for resolution results.
type Manager struct {
	memory  *MemoryStore
	durable DurableStore // nil for memory-only deployments
	policy  confidence.Policy
	breaker *circuit.Breaker
	logger  *slog.Logger
	clock   Clock

	group    singleflight.Group
	hits     atomic.Int64
	misses   atomic.Int64
	inFlight atomic.Int64

	janitorInterval time.Duration
	done            chan struct{}
	closeOnce       sync.Once
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock Clock) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithJanitorInterval sets how often the background sweep runs.
func WithJanitorInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.janitorInterval = d
		}
	}
}

// NewManager builds a cache manager over the given tiers. durable may be nil,
// in which case the manager runs memory-only.
func NewManager(memory *MemoryStore, durable DurableStore, policy confidence.Policy, opts ...ManagerOption) (*Manager, error) {
	if memory == nil {
		return nil, errors.New("cache: memory store is required")
	}
	m := &Manager{
		memory:  memory,
		durable: durable,
		policy:  policy,
		breaker: circuit.New("durable-cache",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2)),
		logger:          slog.Default(),
		clock:           time.Now,
		janitorInterval: defaultJanitorInterval,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// GetOrResolve returns the cached resolution for key, running fn exactly once
// across all concurrent callers of the same key when no tier has it. The read
// path is memory, then the durable tier (re-populating memory on a hit), then
// fn. The single-flight winner writes both tiers before anyone returns, so
// losers observe a fully cached result.
func (m *Manager) GetOrResolve(ctx context.Context, key string, fn ResolveFunc) (*domain.ResolvedEOL, error) {
	if rec, err := m.memory.Get(ctx, key); err == nil {
		m.hits.Add(1)
		metricHits.Inc()
		return recordValue(rec), nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		m.inFlight.Add(1)
		metricInFlight.Inc()
		defer func() {
			m.inFlight.Add(-1)
			metricInFlight.Dec()
		}()

		// A previous flight may have landed between our memory miss and
		// entering this one.
		if rec, err := m.memory.Get(ctx, key); err == nil {
			m.hits.Add(1)
			metricHits.Inc()
			return recordValue(rec), nil
		}

		if rec := m.durableGet(ctx, key); rec != nil {
			m.hits.Add(1)
			metricHits.Inc()
			if err := m.memory.Set(ctx, *rec); err != nil {
				m.logger.WarnContext(ctx, "populate memory tier", "key", key, "error", err)
			}
			return recordValue(rec), nil
		}

		m.misses.Add(1)
		metricMisses.Inc()
		resolved, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		m.write(ctx, key, resolved)
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}

	out := *(v.(*domain.ResolvedEOL))
	return &out, nil
}

// Purge removes key from both tiers. The durable delete is attempted even
// while the breaker is open: an explicit purge must never silently leave a
// stale durable record behind.
func (m *Manager) Purge(ctx context.Context, key string) error {
	if err := m.memory.Delete(ctx, key); err != nil {
		return err
	}
	if m.durable == nil {
		return nil
	}
	if err := m.durable.Delete(ctx, key); err != nil {
		m.durableFailure(ctx, "delete", key, err)
		return fmt.Errorf("purge durable tier: %w", err)
	}
	m.breaker.RecordSuccess()
	return nil
}

// PurgeAll clears both tiers.
func (m *Manager) PurgeAll(ctx context.Context) error {
	if err := m.memory.DeleteAll(ctx); err != nil {
		return err
	}
	if m.durable == nil {
		return nil
	}
	if err := m.durable.DeleteAll(ctx); err != nil {
		m.durableFailure(ctx, "delete_all", "", err)
		return fmt.Errorf("purge durable tier: %w", err)
	}
	m.breaker.RecordSuccess()
	return nil
}

// Stats reports cache activity.
func (m *Manager) Stats(_ context.Context) Stats {
	byTier := map[confidence.Tier]int{
		confidence.TierShort:  0,
		confidence.TierMedium: 0,
		confidence.TierLong:   0,
	}
	for _, rec := range m.memory.Records() {
		byTier[m.policy.Tier(rec.Value.Confidence)]++
	}

	state := string(m.breaker.State())
	if m.durable == nil {
		state = "disabled"
	}
	return Stats{
		HitCount:      m.hits.Load(),
		MissCount:     m.misses.Load(),
		InFlightCount: m.inFlight.Load(),
		EntriesByTier: byTier,
		DurableState:  state,
	}
}

// Start launches the background janitor, which sweeps expired memory entries
// and, while the breaker is open, probes the durable tier so the circuit can
// close again.
func (m *Manager) Start(ctx context.Context) {
	go m.janitor(ctx)
}

// Close stops the janitor. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *Manager) janitor(ctx context.Context) {
	ticker := time.NewTicker(m.janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			if swept := m.memory.Sweep(m.clock()); swept > 0 {
				m.logger.DebugContext(ctx, "swept expired cache entries", "count", swept)
			}
			m.probeDurable(ctx)
		}
	}
}

func (m *Manager) probeDurable(ctx context.Context) {
	if m.durable == nil || !m.breaker.IsOpen() {
		return
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := m.durable.Health(probeCtx); err != nil {
		m.breaker.RecordFailure()
		return
	}
	if _, change := m.breaker.RecordSuccess(); change.Closed {
		m.logger.InfoContext(ctx, "durable cache tier recovered")
	}
}

// durableGet reads from the durable tier, treating any failure as a miss so
// resolution never blocks on a broken backend.
func (m *Manager) durableGet(ctx context.Context, key string) *domain.CacheRecord {
	if m.durable == nil || m.breaker.IsOpen() {
		return nil
	}
	rec, err := m.durable.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			m.breaker.RecordSuccess()
			return nil
		}
		m.durableFailure(ctx, "get", key, err)
		return nil
	}
	m.breaker.RecordSuccess()
	return rec
}

// write stores the resolution in both tiers with a confidence-weighted TTL.
func (m *Manager) write(ctx context.Context, key string, value *domain.ResolvedEOL) {
	rec := domain.CacheRecord{
		Key:       key,
		Value:     *value,
		ExpiresAt: m.clock().Add(m.policy.TTL(value.Confidence)),
	}
	if err := m.memory.Set(ctx, rec); err != nil {
		m.logger.WarnContext(ctx, "write memory tier", "key", key, "error", err)
	}
	if m.durable == nil || m.breaker.IsOpen() {
		return
	}
	if err := m.durable.Set(ctx, rec); err != nil {
		m.durableFailure(ctx, "set", key, err)
		return
	}
	m.breaker.RecordSuccess()
}

func (m *Manager) durableFailure(ctx context.Context, op, key string, err error) {
	metricDurableFailures.WithLabelValues(op).Inc()
	if _, change := m.breaker.RecordFailure(); change.Opened {
		m.logger.ErrorContext(ctx, "durable cache tier degraded to memory-only",
			"op", op, "key", key, "error", err)
		return
	}
	m.logger.WarnContext(ctx, "durable cache operation failed",
		"op", op, "key", key, "error", err)
}

func recordValue(rec *domain.CacheRecord) *domain.ResolvedEOL {
	out := rec.Value
	return &out
}
