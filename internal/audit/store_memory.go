package audit

import (
	"context"
	"sync"
)

// defaultCapacity bounds the in-memory trail. Oldest events fall off first.
const defaultCapacity = 1024

// MemoryStore keeps the most recent events in memory. Enough for a single
// process; a deployment that needs a durable trail puts a database store
// behind the same interface.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewMemoryStore creates a MemoryStore holding at most capacity events.
// Non-positive capacity uses the default.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}
