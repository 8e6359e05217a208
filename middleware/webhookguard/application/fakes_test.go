package application

import (
	"context"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"
)

// fakeStore reaproveita as regras do domain sem sincronização (testes são sequenciais).
type fakeStore struct {
	records map[domain.Key]*domain.ClientRecord
	blocks  map[domain.Key]domain.BlockEntry
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[domain.Key]*domain.ClientRecord),
		blocks:  make(map[domain.Key]domain.BlockEntry),
	}
}

func (s *fakeStore) IsBlocked(_ context.Context, key domain.Key, now time.Time, d time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	b, ok := s.blocks[key]
	if !ok {
		return false, nil
	}
	if !b.Active(now, d) {
		delete(s.blocks, key)
		return false, nil
	}
	return true, nil
}

func (s *fakeStore) RecordAndCheck(_ context.Context, key domain.Key, now time.Time, lim domain.Limits) (domain.Verdict, error) {
	if s.err != nil {
		return domain.Verdict{}, s.err
	}
	rec, ok := s.records[key]
	if !ok {
		rec = &domain.ClientRecord{}
		s.records[key] = rec
	}
	v := rec.Check(now, lim)
	if v.Limited {
		s.blocks[key] = domain.BlockEntry{ImposedAt: now}
	}
	return v, nil
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *manualClock) Clock() domain.Clock { return c.Now }
