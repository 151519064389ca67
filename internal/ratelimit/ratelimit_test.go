package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 5
	testWindow = time.Minute
)

type LimiterSuite struct {
	suite.Suite
	now     time.Time
	limiter *Limiter
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.limiter = New(testLimit, testWindow, WithClock(func() time.Time { return s.now }))
}

func (s *LimiterSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *LimiterSuite) TestAllowsUpToLimit() {
	var d Decision
	for range testLimit {
		d = s.limiter.Allow("10.0.0.1")
		s.True(d.Allowed)
	}
	s.Equal(0, d.Remaining)
	s.Equal(testLimit, d.Limit)
}

func (s *LimiterSuite) TestDeniesOverLimit() {
	for range testLimit {
		s.limiter.Allow("10.0.0.1")
	}

	d := s.limiter.Allow("10.0.0.1")
	s.False(d.Allowed)
	s.Equal(0, d.Remaining)
	s.Equal(s.now.Add(testWindow), d.ResetAt)
}

func (s *LimiterSuite) TestKeysAreIndependent() {
	for range testLimit {
		s.limiter.Allow("10.0.0.1")
	}

	d := s.limiter.Allow("10.0.0.2")
	s.True(d.Allowed)
	s.Equal(testLimit-1, d.Remaining)
}

func (s *LimiterSuite) TestWindowSlides() {
	// Three early requests, then two at the half-way mark fill the budget.
	for range 3 {
		s.limiter.Allow("10.0.0.1")
	}
	s.advance(30 * time.Second)
	for range 2 {
		s.limiter.Allow("10.0.0.1")
	}
	s.False(s.limiter.Allow("10.0.0.1").Allowed)

	// Past the first window only the early requests age out, so the budget
	// opens by exactly three.
	s.advance(31 * time.Second)
	for range 3 {
		s.True(s.limiter.Allow("10.0.0.1").Allowed)
	}
	s.False(s.limiter.Allow("10.0.0.1").Allowed)
}

func (s *LimiterSuite) TestDeniedRequestDoesNotConsumeBudget() {
	for range testLimit {
		s.limiter.Allow("10.0.0.1")
	}
	for range 10 {
		s.limiter.Allow("10.0.0.1")
	}

	s.advance(testWindow + time.Second)
	d := s.limiter.Allow("10.0.0.1")
	s.True(d.Allowed)
	s.Equal(testLimit-1, d.Remaining)
}

func (s *LimiterSuite) TestSweepDropsIdleKeys() {
	for i := range sweepInterval - 1 {
		s.limiter.Allow(string(rune('a' + i%26)))
	}
	s.advance(testWindow + time.Second)

	// The next call crosses the sweep threshold with every window expired.
	s.limiter.Allow("fresh")

	s.limiter.mu.Lock()
	defer s.limiter.mu.Unlock()
	s.Len(s.limiter.windows, 1)
}

func (s *LimiterSuite) TestConcurrentAllowStaysWithinLimit() {
	limiter := New(100, testWindow)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 300 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(100, allowed)
}
