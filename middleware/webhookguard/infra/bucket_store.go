package infra

import (
	"sync"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"

	"golang.org/x/time/rate"
)

// BucketStore é o throttle geral das rotas fora do webhook: um token bucket
// (x/time/rate) por chave, com limpeza de chaves ociosas.
type BucketStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*bucketEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	clock        domain.Clock
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BucketOption func(*BucketStore)

func WithIdleTTL(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.idleTTL = d }
}

func WithBucketCleanupEvery(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.cleanupEvery = d }
}

func WithBucketClock(c domain.Clock) BucketOption {
	return func(s *BucketStore) { s.clock = c }
}

func NewBucketStore(rps float64, burst int, opts ...BucketOption) *BucketStore {
	s := &BucketStore{
		entries:      make(map[domain.Key]*bucketEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BucketStore) RPS() float64 { return float64(s.rps) }
func (s *BucketStore) Burst() int   { return s.burst }

// Get implementa domain.LimiterStore.
func (s *BucketStore) Get(key domain.Key) domain.Limiter {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &bucketEntry{lim: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = ent
	}
	ent.lastSeen = now
	return bucketLimiter{lim: ent.lim, clock: s.clock}
}

// bucketLimiter consulta o bucket no relógio do store.
type bucketLimiter struct {
	lim   *rate.Limiter
	clock domain.Clock
}

func (b bucketLimiter) Allow() bool { return b.lim.AllowN(b.clock.Now(), 1) }

func (s *BucketStore) Cleanup() {
	cutoff := s.clock.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor limpa chaves inativas periodicamente. Pare cancelando o contexto.
func (s *BucketStore) StartJanitor(ctx DoneContext) {
	runJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
