package eol

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunset/internal/cache"
	"sunset/internal/confidence"
	"sunset/internal/domain"
	"sunset/internal/normalize"
	"sunset/internal/resolver"
	"sunset/pkg/platform/sentinel"
)

func mkOutcome(index int, id string, priority int, fallback bool, c *domain.Candidate) outcome {
	return outcome{
		index:     index,
		entry:     resolver.Entry{Descriptor: resolver.Descriptor{ID: id, Priority: priority}},
		fallback:  fallback,
		candidate: c,
	}
}

func TestPickBestVendorBeatsFallback(t *testing.T) {
	vendor := mkOutcome(0, "microsoft", 10, false, &domain.Candidate{ResolverID: "microsoft", Cycle: "2016", EOLDate: datePtr(2027, time.January, 12), Hint: 0.6})
	fallback := mkOutcome(1, "endoflife", 0, true, &domain.Candidate{ResolverID: "endoflife", Cycle: "2016", EOLDate: datePtr(2027, time.January, 11), Hint: 0.9})

	// The fallback arriving first, with a stronger hint, must not matter.
	for _, arrival := range [][]outcome{{vendor, fallback}, {fallback, vendor}} {
		best := pickBest(arrival, "2016")
		require.NotNil(t, best)
		assert.Equal(t, "microsoft", best.candidate.ResolverID)
	}
}

func TestPickBestFallbackWinsWhenVendorsUnusable(t *testing.T) {
	outcomes := []outcome{
		mkOutcome(0, "microsoft", 10, false, nil),
		mkOutcome(1, "redhat", 20, false, &domain.Candidate{ResolverID: "redhat"}), // no lifecycle signal
		mkOutcome(2, "endoflife", 0, true, &domain.Candidate{ResolverID: "endoflife", LatestVersion: "9.4"}),
	}

	best := pickBest(outcomes, "")
	require.NotNil(t, best)
	assert.Equal(t, "endoflife", best.candidate.ResolverID)
}

func TestPickBestNilWhenNothingUsable(t *testing.T) {
	outcomes := []outcome{
		mkOutcome(0, "microsoft", 10, false, nil),
		mkOutcome(1, "endoflife", 0, true, nil),
	}
	assert.Nil(t, pickBest(outcomes, "2019"))
	assert.Nil(t, pickBest(nil, ""))
}

func TestPickBestPriorityOrdersVendors(t *testing.T) {
	low := mkOutcome(0, "runtime", 30, false, &domain.Candidate{ResolverID: "runtime", Cycle: "3.11", EOLDate: datePtr(2027, time.October, 31), Hint: 0.9})
	high := mkOutcome(1, "microsoft", 10, false, &domain.Candidate{ResolverID: "microsoft", Cycle: "3.11", EOLDate: datePtr(2027, time.October, 31), Hint: 0.5})

	for _, arrival := range [][]outcome{{low, high}, {high, low}} {
		best := pickBest(arrival, "3.11.5")
		require.NotNil(t, best)
		assert.Equal(t, "microsoft", best.candidate.ResolverID)
	}
}

func TestPickBestSpecificityBreaksPriorityTie(t *testing.T) {
	major := mkOutcome(0, "alpha", 10, false, &domain.Candidate{ResolverID: "alpha", Cycle: "3", EOLDate: datePtr(2027, time.October, 31), Hint: 0.9})
	minor := mkOutcome(1, "beta", 10, false, &domain.Candidate{ResolverID: "beta", Cycle: "3.11", EOLDate: datePtr(2027, time.October, 31), Hint: 0.5})

	best := pickBest([]outcome{major, minor}, "3.11.5")
	require.NotNil(t, best)
	assert.Equal(t, "beta", best.candidate.ResolverID)
}

func TestPickBestHintBreaksSpecificityTie(t *testing.T) {
	weak := mkOutcome(0, "alpha", 10, false, &domain.Candidate{ResolverID: "alpha", Cycle: "18", EOLDate: datePtr(2025, time.April, 30), Hint: 0.6})
	strong := mkOutcome(1, "beta", 10, false, &domain.Candidate{ResolverID: "beta", Cycle: "18", EOLDate: datePtr(2025, time.April, 30), Hint: 0.8})

	best := pickBest([]outcome{weak, strong}, "18.17.0")
	require.NotNil(t, best)
	assert.Equal(t, "beta", best.candidate.ResolverID)
}

func TestPickBestSelectionOrderBreaksFullTie(t *testing.T) {
	first := mkOutcome(0, "alpha", 10, false, &domain.Candidate{ResolverID: "alpha", Cycle: "14", EOLDate: datePtr(2026, time.November, 12), Hint: 0.7})
	second := mkOutcome(1, "beta", 10, false, &domain.Candidate{ResolverID: "beta", Cycle: "14", EOLDate: datePtr(2026, time.November, 12), Hint: 0.7})

	for _, arrival := range [][]outcome{{first, second}, {second, first}} {
		best := pickBest(arrival, "14.9")
		require.NotNil(t, best)
		assert.Equal(t, "alpha", best.candidate.ResolverID)
	}
}

func TestPickBestDeterministicAcrossArrivalOrders(t *testing.T) {
	outcomes := []outcome{
		mkOutcome(0, "microsoft", 10, false, &domain.Candidate{ResolverID: "microsoft", Cycle: "2019", EOLDate: datePtr(2030, time.January, 8), Hint: 0.9}),
		mkOutcome(1, "runtime", 30, false, &domain.Candidate{ResolverID: "runtime", Cycle: "2019", EOLDate: datePtr(2030, time.January, 8), Hint: 0.7}),
		mkOutcome(2, "redhat", 20, false, &domain.Candidate{ResolverID: "redhat"}),
		mkOutcome(3, "endoflife", 0, true, &domain.Candidate{ResolverID: "endoflife", Cycle: "2019", EOLDate: datePtr(2030, time.January, 8), Hint: 0.9}),
	}

	for i := 0; i < 25; i++ {
		shuffled := make([]outcome, len(outcomes))
		copy(shuffled, outcomes)
		rand.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		best := pickBest(shuffled, "2019")
		require.NotNil(t, best)
		assert.Equal(t, "microsoft", best.candidate.ResolverID, "arrival order changed the pick")
	}
}

func newAggregateService(t *testing.T, fb resolver.Resolver, timeout time.Duration, vendors ...resolver.Entry) *Service {
	t.Helper()
	registry, err := resolver.NewRegistry(fallbackEntry(fb), vendors...)
	require.NoError(t, err)
	mgr, err := cache.NewManager(cache.NewMemoryStore(), nil, confidence.DefaultPolicy(), cache.WithLogger(discardLogger()))
	require.NoError(t, err)
	svc, err := New(registry, mgr, confidence.DefaultPolicy(),
		WithLogger(discardLogger()),
		WithResolveTimeout(timeout),
	)
	require.NoError(t, err)
	return svc
}

func TestAggregateWaitsForSlowerSourcesWithinDeadline(t *testing.T) {
	fast := &stubResolver{id: "endoflife", candidate: &domain.Candidate{ResolverID: "endoflife", Cycle: "2016", EOLDate: datePtr(2027, time.January, 11), Hint: 0.9}}
	slow := &stubResolver{
		id:        "microsoft",
		delay:     20 * time.Millisecond,
		candidate: &domain.Candidate{ResolverID: "microsoft", Cycle: "2016", EOLDate: datePtr(2027, time.January, 12), Hint: 0.6},
	}
	svc := newAggregateService(t, fast, 2*time.Second,
		vendorEntry("microsoft", 10, []string{"windows"}, slow),
	)

	q := normalize.Parse("Windows Server 2016")
	best := svc.aggregate(context.Background(), q, svc.sources.Select(q.Normalized))

	require.NotNil(t, best)
	assert.Equal(t, "microsoft", best.candidate.ResolverID, "a fast fallback answer must not preempt a pending vendor source")
}

func TestAggregateAbandonsStragglerAtDeadline(t *testing.T) {
	straggler := &stubResolver{id: "microsoft", blockCtx: true}
	fallback := &stubResolver{id: "endoflife", candidate: &domain.Candidate{ResolverID: "endoflife", Cycle: "2016", EOLDate: datePtr(2027, time.January, 11), Hint: 0.9}}
	svc := newAggregateService(t, fallback, 40*time.Millisecond,
		vendorEntry("microsoft", 10, []string{"windows"}, straggler),
	)

	q := normalize.Parse("Windows Server 2016")
	start := time.Now()
	best := svc.aggregate(context.Background(), q, svc.sources.Select(q.Normalized))
	elapsed := time.Since(start)

	require.NotNil(t, best)
	assert.Equal(t, "endoflife", best.candidate.ResolverID)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond, "the pass should hold until the deadline for the straggler")
	assert.Less(t, elapsed, 2*time.Second, "the straggler must not be awaited past the deadline")
	assert.EqualValues(t, 1, straggler.calls.Load())
}

func TestAggregateNilWhenEverySourceFails(t *testing.T) {
	vendor := &stubResolver{id: "microsoft", err: fmt.Errorf("lookup: %w", sentinel.ErrUnavailable)}
	fallback := &stubResolver{id: "endoflife", err: fmt.Errorf("lookup: %w", sentinel.ErrNotFound)}
	svc := newAggregateService(t, fallback, time.Second,
		vendorEntry("microsoft", 10, []string{"windows"}, vendor),
	)

	q := normalize.Parse("Windows Server 2016")
	assert.Nil(t, svc.aggregate(context.Background(), q, svc.sources.Select(q.Normalized)))
}

func TestAggregateFailedSourceDoesNotMaskOthers(t *testing.T) {
	vendor := &stubResolver{id: "microsoft", err: fmt.Errorf("lookup: %w", sentinel.ErrUnavailable)}
	fallback := &stubResolver{id: "endoflife", candidate: &domain.Candidate{ResolverID: "endoflife", Cycle: "2016", EOLDate: datePtr(2027, time.January, 11), Hint: 0.9}}
	svc := newAggregateService(t, fallback, time.Second,
		vendorEntry("microsoft", 10, []string{"windows"}, vendor),
	)

	q := normalize.Parse("Windows Server 2016")
	best := svc.aggregate(context.Background(), q, svc.sources.Select(q.Normalized))

	require.NotNil(t, best)
	assert.Equal(t, "endoflife", best.candidate.ResolverID)
}
