package infra

import (
	"context"
	"sync"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"
)

// MemoryClientStore guarda histórico e bloqueios no processo.
//
// Um único mutex cobre os dois mapas: a sequência poda -> contagem ->
// append/bloqueio de RecordAndCheck roda inteira sob o lock.
// Estado é perdido ao reiniciar o processo.
type MemoryClientStore struct {
	mu      sync.Mutex
	records map[domain.Key]*domain.ClientRecord
	blocks  map[domain.Key]domain.BlockEntry

	cleanupEvery time.Duration
	clock        domain.Clock
}

var _ domain.ClientStore = (*MemoryClientStore)(nil)

type MemoryOption func(*MemoryClientStore)

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryClientStore) { s.cleanupEvery = d }
}

// WithClock troca o relógio usado pelo janitor.
func WithClock(c domain.Clock) MemoryOption {
	return func(s *MemoryClientStore) { s.clock = c }
}

func NewMemoryClientStore(opts ...MemoryOption) *MemoryClientStore {
	s := &MemoryClientStore{
		records:      make(map[domain.Key]*domain.ClientRecord),
		blocks:       make(map[domain.Key]domain.BlockEntry),
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryClientStore) IsBlocked(_ context.Context, key domain.Key, now time.Time, blockFor time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[key]
	if !ok {
		return false, nil
	}
	if !b.Active(now, blockFor) {
		delete(s.blocks, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryClientStore) RecordAndCheck(_ context.Context, key domain.Key, now time.Time, lim domain.Limits) (domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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

// History devolve uma cópia dos timestamps registrados para key.
func (s *MemoryClientStore) History(key domain.Key) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	out := make([]time.Time, len(rec.Timestamps))
	copy(out, rec.Timestamps)
	return out
}

func (s *MemoryClientStore) ClientStats(context.Context) (domain.ClientStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.ClientStats{
		ActiveClients:  len(s.records),
		BlockedClients: len(s.blocks),
	}
	for _, rec := range s.records {
		st.TrackedRequests += len(rec.Timestamps)
	}
	return st, nil
}

// Cleanup remove clientes sem histórico na última hora e bloqueios vencidos.
// Não muda nenhuma decisão: só libera memória que a expiração preguiçosa
// deixaria para trás.
func (s *MemoryClientStore) Cleanup(now time.Time, blockFor time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, rec := range s.records {
		rec.Prune(now)
		if len(rec.Timestamps) == 0 {
			delete(s.records, k)
		}
	}
	for k, b := range s.blocks {
		if !b.Active(now, blockFor) {
			delete(s.blocks, k)
		}
	}
}

// StartJanitor inicia uma goroutine que roda Cleanup periodicamente.
// Pare cancelando o contexto.
func (s *MemoryClientStore) StartJanitor(ctx DoneContext, blockFor time.Duration) {
	runJanitor(ctx, s.cleanupEvery, func() {
		s.Cleanup(s.clock.Now(), blockFor)
	})
}
