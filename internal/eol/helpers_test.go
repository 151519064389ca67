package eol

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"sunset/internal/domain"
	"sunset/internal/resolver"
	"sunset/pkg/platform/sentinel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubResolver is a scriptable source: it answers with a fixed candidate or
// error, optionally after a delay, or blocks until the pass deadline fires.
type stubResolver struct {
	id        string
	candidate *domain.Candidate
	err       error
	delay     time.Duration
	blockCtx  bool
	healthErr error
	calls     atomic.Int64
}

func (r *stubResolver) ID() string { return r.id }

func (r *stubResolver) Lookup(ctx context.Context, _ domain.Query) (*domain.Candidate, error) {
	r.calls.Add(1)
	if r.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.candidate == nil {
		return nil, fmt.Errorf("lookup: %w", sentinel.ErrNotFound)
	}
	c := *r.candidate
	return &c, nil
}

func (r *stubResolver) Health(_ context.Context) error { return r.healthErr }

// barrierResolver blocks every Lookup until the expected number of callers is
// in flight at once, then releases them all. A sequential caller would never
// reach the barrier and times out instead.
type barrierResolver struct {
	id        string
	needed    int64
	candidate *domain.Candidate

	arrived atomic.Int64
	release chan struct{}
	once    sync.Once
}

func newBarrierResolver(id string, needed int, candidate *domain.Candidate) *barrierResolver {
	return &barrierResolver{
		id:        id,
		needed:    int64(needed),
		candidate: candidate,
		release:   make(chan struct{}),
	}
}

func (r *barrierResolver) ID() string { return r.id }

func (r *barrierResolver) Lookup(ctx context.Context, _ domain.Query) (*domain.Candidate, error) {
	if r.arrived.Add(1) >= r.needed {
		r.once.Do(func() { close(r.release) })
	}
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c := *r.candidate
	return &c, nil
}

func (r *barrierResolver) Health(_ context.Context) error { return nil }

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func vendorEntry(id string, priority int, keywords []string, r resolver.Resolver) resolver.Entry {
	return resolver.Entry{
		Descriptor: resolver.Descriptor{
			ID:          id,
			DisplayName: id,
			Keywords:    keywords,
			Priority:    priority,
		},
		Resolver: r,
	}
}

func fallbackEntry(r resolver.Resolver) resolver.Entry {
	return resolver.Entry{
		Descriptor: resolver.Descriptor{ID: r.ID(), DisplayName: r.ID()},
		Resolver:   r,
	}
}
