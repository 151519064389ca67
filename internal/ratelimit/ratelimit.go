// Package ratelimit bounds how fast individual clients may hit the resolve
// endpoints. It uses a sliding window over request timestamps so a client
// cannot double its budget by straddling a window boundary.
package ratelimit

import (
	"sync"
	"time"
)

// sweepInterval is how many Allow calls pass between sweeps of idle windows.
const sweepInterval = 1024

// Decision reports the outcome of a single rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest counted request leaves the window, i.e. the
	// earliest time a denied client can retry.
	ResetAt time.Time
}

// Limiter tracks per-key request timestamps in memory. It is not distributed;
// each process enforces its own budget.
type Limiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu         sync.Mutex
	windows    map[string][]time.Time
	sinceSweep int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New creates a Limiter allowing limit requests per key per window.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		clock:   time.Now,
		windows: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request for key and reports whether it fits the budget.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.sinceSweep++
	if l.sinceSweep >= sweepInterval {
		l.sweep(now)
	}

	stamps := prune(l.windows[key], now.Add(-l.window))
	if len(stamps) >= l.limit {
		l.windows[key] = stamps
		return Decision{
			Allowed:   false,
			Limit:     l.limit,
			Remaining: 0,
			ResetAt:   stamps[0].Add(l.window),
		}
	}

	stamps = append(stamps, now)
	l.windows[key] = stamps
	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(stamps),
		ResetAt:   stamps[0].Add(l.window),
	}
}

// sweep drops windows whose every timestamp has aged out, so the map does not
// grow without bound across distinct client keys. Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.window)
	for key, stamps := range l.windows {
		if kept := prune(stamps, cutoff); len(kept) == 0 {
			delete(l.windows, key)
		} else {
			l.windows[key] = kept
		}
	}
	l.sinceSweep = 0
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// clock order, so the kept suffix starts at the first live entry.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
