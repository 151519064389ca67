package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"sunset/internal/domain"
	"sunset/pkg/platform/sentinel"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a manually advanced clock shared by the stores and the
// manager under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubDurable is an in-memory DurableStore with a switchable failure mode.
// Like the real backends it treats expired records as absent.
type stubDurable struct {
	mu      sync.Mutex
	records map[string]domain.CacheRecord
	clock   Clock
	failing bool

	gets, sets, deletes, deleteAlls, healths int
}

func newStubDurable(clock Clock) *stubDurable {
	return &stubDurable{
		records: make(map[string]domain.CacheRecord),
		clock:   clock,
	}
}

func (s *stubDurable) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *stubDurable) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets + s.sets + s.deletes + s.deleteAlls + s.healths
}

func (s *stubDurable) Get(_ context.Context, key string) (*domain.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failing {
		return nil, fmt.Errorf("stub durable: %w", sentinel.ErrUnavailable)
	}
	rec, ok := s.records[key]
	if !ok || rec.Expired(s.clock()) {
		return nil, fmt.Errorf("stub durable %q: %w", key, sentinel.ErrNotFound)
	}
	out := rec
	return &out, nil
}

func (s *stubDurable) Set(_ context.Context, rec domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failing {
		return fmt.Errorf("stub durable: %w", sentinel.ErrUnavailable)
	}
	s.records[rec.Key] = rec
	return nil
}

func (s *stubDurable) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.failing {
		return fmt.Errorf("stub durable: %w", sentinel.ErrUnavailable)
	}
	delete(s.records, key)
	return nil
}

func (s *stubDurable) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteAlls++
	if s.failing {
		return fmt.Errorf("stub durable: %w", sentinel.ErrUnavailable)
	}
	s.records = make(map[string]domain.CacheRecord)
	return nil
}

func (s *stubDurable) Health(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healths++
	if s.failing {
		return fmt.Errorf("stub durable: %w", sentinel.ErrUnavailable)
	}
	return nil
}

func resolvedFixture(key, name, version string, conf float64) *domain.ResolvedEOL {
	eol := time.Date(2027, 1, 12, 0, 0, 0, 0, time.UTC)
	return &domain.ResolvedEOL{
		QueryKey:             key,
		ProductName:          name,
		Version:              version,
		Status:               domain.StatusSupported,
		EOLDate:              &eol,
		Confidence:           conf,
		ContributingResolver: "microsoft",
		ComputedAt:           time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}
