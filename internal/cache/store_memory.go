package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sunset/internal/domain"
	"sunset/pkg/platform/sentinel"
)

// MemoryStore is the process-local cache tier. Expired entries are dropped
// lazily on read and in bulk by the manager's janitor sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheRecord
	clock   Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore creates an empty memory tier.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]domain.CacheRecord),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get returns the record for key, or sentinel.ErrNotFound when it is absent
// or expired. Expired entries are removed on the way out.
func (s *MemoryStore) Get(_ context.Context, key string) (*domain.CacheRecord, error) {
	s.mu.RLock()
	rec, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory get %q: %w", key, sentinel.ErrNotFound)
	}
	if rec.Expired(s.clock()) {
		s.mu.Lock()
		// Re-check under the write lock; a fresher record may have landed
		// since the read above.
		if cur, ok := s.entries[key]; ok && cur.Expired(s.clock()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, fmt.Errorf("memory get %q: expired: %w", key, sentinel.ErrNotFound)
	}
	out := rec
	return &out, nil
}

// Set stores or replaces the record under its key.
func (s *MemoryStore) Set(_ context.Context, rec domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[rec.Key] = rec
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// DeleteAll clears the tier.
func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.CacheRecord)
	return nil
}

// Sweep removes every entry expired at the given instant and returns how
// many were dropped.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, rec := range s.entries {
		if rec.Expired(now) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Records returns a snapshot of all live entries at the current instant.
func (s *MemoryStore) Records() []domain.CacheRecord {
	now := s.clock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CacheRecord, 0, len(s.entries))
	for _, rec := range s.entries {
		if rec.Expired(now) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
