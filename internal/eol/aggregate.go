package eol

import (
	"context"

	"sunset/internal/domain"
	"sunset/internal/resolver"
)

// outcome is one source's contribution to an aggregation pass. The index is
// the entry's position in the selection order and serves as the final
// tie-break, so the pick never depends on goroutine scheduling.
type outcome struct {
	index     int
	entry     resolver.Entry
	fallback  bool
	candidate *domain.Candidate
}

// aggregate fans the query out to every selected source and picks the best
// candidate from whatever arrives before the pass deadline. Sources still
// running at the deadline are abandoned, not awaited: the channel is buffered
// so their late sends complete and the goroutines exit on their own.
func (s *Service) aggregate(ctx context.Context, q domain.Query, selected []resolver.Entry) *outcome {
	ctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	fallbackID := s.sources.Fallback().Descriptor.ID

	results := make(chan outcome, len(selected))
	for i, entry := range selected {
		go func() {
			// A failed lookup still reports in; the pick pass skips it.
			candidate, err := entry.Resolver.Lookup(ctx, q)
			if err != nil {
				candidate = nil
			}
			results <- outcome{
				index:     i,
				entry:     entry,
				fallback:  entry.Descriptor.ID == fallbackID,
				candidate: candidate,
			}
		}()
	}

	outcomes := make([]outcome, 0, len(selected))
collect:
	for range selected {
		select {
		case o := <-results:
			outcomes = append(outcomes, o)
		case <-ctx.Done():
			break collect
		}
	}

	return pickBest(outcomes, q.Version)
}

// pickBest selects the winning candidate among the collected outcomes, or nil
// when no source produced a usable one. Outcomes arrive in completion order;
// the beats ladder makes the result independent of that order.
func pickBest(outcomes []outcome, version string) *outcome {
	var best *outcome
	for i := range outcomes {
		o := &outcomes[i]
		if !o.candidate.Usable() {
			continue
		}
		if best == nil || o.beats(best, version) {
			best = o
		}
	}
	return best
}

// beats reports whether o outranks other. Vendor sources always outrank the
// fallback, then lower descriptor priority wins, then the more specific
// version match, then the source's own confidence hint, then selection order.
func (o *outcome) beats(other *outcome, version string) bool {
	if o.fallback != other.fallback {
		return other.fallback
	}
	if a, b := o.entry.Descriptor.Priority, other.entry.Descriptor.Priority; a != b {
		return a < b
	}
	if a, b := resolver.MatchSpecificity(version, o.candidate.Cycle), resolver.MatchSpecificity(version, other.candidate.Cycle); a != b {
		return a > b
	}
	if a, b := o.candidate.Hint, other.candidate.Hint; a != b {
		return a > b
	}
	return o.index < other.index
}
