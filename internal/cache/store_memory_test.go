package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sunset/internal/domain"
	"sunset/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	clock *fakeClock
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.clock = newFakeClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	s.store = NewMemoryStore(WithMemoryClock(s.clock.Now))
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) record(key string, conf float64, ttl time.Duration) domain.CacheRecord {
	return domain.CacheRecord{
		Key:       key,
		Value:     *resolvedFixture(key, "Windows Server 2016", "2016", conf),
		ExpiresAt: s.clock.Now().Add(ttl),
	}
}

func (s *MemoryStoreSuite) TestRoundTrip() {
	rec := s.record("windows server 2016@2016", 0.9, time.Hour)
	s.Require().NoError(s.store.Set(s.ctx, rec))

	got, err := s.store.Get(s.ctx, rec.Key)
	s.Require().NoError(err)
	s.Equal(rec, *got)
}

func (s *MemoryStoreSuite) TestMiss() {
	_, err := s.store.Get(s.ctx, "absent@-")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestLazyExpiry() {
	rec := s.record("python 3.11.5@3.11.5", 0.7, time.Hour)
	s.Require().NoError(s.store.Set(s.ctx, rec))

	// The expiry instant itself is already expired.
	s.clock.Advance(time.Hour)

	_, err := s.store.Get(s.ctx, rec.Key)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(0, s.store.Len(), "expired entry dropped on read")
}

func (s *MemoryStoreSuite) TestSetReplaces() {
	first := s.record("ubuntu 22.04@22.04", 0.5, time.Minute)
	s.Require().NoError(s.store.Set(s.ctx, first))

	second := s.record("ubuntu 22.04@22.04", 0.9, time.Hour)
	s.Require().NoError(s.store.Set(s.ctx, second))

	got, err := s.store.Get(s.ctx, first.Key)
	s.Require().NoError(err)
	s.Equal(second, *got)
	s.Equal(1, s.store.Len())
}

func (s *MemoryStoreSuite) TestSweep() {
	s.Require().NoError(s.store.Set(s.ctx, s.record("short-lived@-", 0.4, time.Minute)))
	s.Require().NoError(s.store.Set(s.ctx, s.record("long-lived@-", 0.9, time.Hour)))

	s.clock.Advance(30 * time.Minute)
	s.Equal(1, s.store.Sweep(s.clock.Now()))
	s.Equal(1, s.store.Len())

	_, err := s.store.Get(s.ctx, "long-lived@-")
	s.NoError(err)
}

func (s *MemoryStoreSuite) TestDelete() {
	rec := s.record("debian 12@12", 0.8, time.Hour)
	s.Require().NoError(s.store.Set(s.ctx, rec))
	s.Require().NoError(s.store.Delete(s.ctx, rec.Key))

	_, err := s.store.Get(s.ctx, rec.Key)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.NoError(s.store.Delete(s.ctx, "never-there@-"), "deleting an absent key is fine")
}

func (s *MemoryStoreSuite) TestDeleteAll() {
	s.Require().NoError(s.store.Set(s.ctx, s.record("one@-", 0.5, time.Hour)))
	s.Require().NoError(s.store.Set(s.ctx, s.record("two@-", 0.5, time.Hour)))

	s.Require().NoError(s.store.DeleteAll(s.ctx))
	s.Equal(0, s.store.Len())
}

func (s *MemoryStoreSuite) TestRecordsSkipsExpired() {
	s.Require().NoError(s.store.Set(s.ctx, s.record("live@-", 0.5, time.Hour)))
	s.Require().NoError(s.store.Set(s.ctx, s.record("dead@-", 0.5, time.Minute)))

	s.clock.Advance(10 * time.Minute)

	records := s.store.Records()
	s.Require().Len(records, 1)
	s.Equal("live@-", records[0].Key)
}
