package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sunset/internal/domain"
	"sunset/pkg/platform/sentinel"
)

// Instrumented decorates a resolver with a per-call timeout cap, latency
// metrics, and debug logging. The aggregation deadline still applies; the
// cap only keeps one slow source from consuming the whole pass budget.
type Instrumented struct {
	next    Resolver
	timeout time.Duration
	logger  *slog.Logger
}

// Instrument wraps a resolver. A zero timeout disables the per-call cap and
// leaves the caller's deadline in charge.
func Instrument(next Resolver, timeout time.Duration, logger *slog.Logger) *Instrumented {
	return &Instrumented{next: next, timeout: timeout, logger: logger}
}

func (i *Instrumented) ID() string {
	return i.next.ID()
}

func (i *Instrumented) Lookup(ctx context.Context, q domain.Query) (*domain.Candidate, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	candidate, err := i.next.Lookup(ctx, q)
	elapsed := time.Since(start)

	outcome := outcomeOK
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		outcome = outcomeTimeout
	case errors.Is(err, sentinel.ErrNotFound):
		outcome = outcomeNoCandidate
	default:
		outcome = outcomeError
	}
	lookupDuration.WithLabelValues(i.next.ID(), outcome).Observe(elapsed.Seconds())

	if err != nil && i.logger != nil {
		i.logger.DebugContext(ctx, "source lookup did not produce a candidate",
			"source", i.next.ID(),
			"outcome", outcome,
			"query", q.Normalized,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
	}
	return candidate, err
}

func (i *Instrumented) Health(ctx context.Context) error {
	return i.next.Health(ctx)
}
