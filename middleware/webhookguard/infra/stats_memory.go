package infra

import (
	"context"
	"sync"

	"webhook-gateway/middleware/webhookguard/domain"
)

// Counters soma decisões por resultado.
type Counters map[domain.Outcome]int64

func (c Counters) clone() Counters {
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// MemoryStatsStore é uma implementação simples em memória.
// Alimenta o endpoint de estatísticas de segurança.
//
// Não faz expiração; com trackKeys=true o mapa por chave cresce com o número de IPs.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[domain.Route]Counters
	byKey   map[domain.Key]Counters
	reasons map[domain.Reason]int64

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:   make(Counters),
		byRoute: make(map[domain.Route]Counters),
		byKey:   make(map[domain.Key]Counters),
		reasons: make(map[domain.Reason]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Outcome]++
	bump(s.byRoute, ev.Route, ev.Outcome)
	if s.trackKeys {
		bump(s.byKey, ev.Key, ev.Outcome)
	}
	if ev.Reason != "" {
		s.reasons[ev.Reason]++
	}
	return nil
}

func bump[K comparable](m map[K]Counters, k K, o domain.Outcome) {
	c, ok := m[k]
	if !ok {
		c = make(Counters)
		m[k] = c
	}
	c[o]++
}

// Totals implementa a fonte de contadores do endpoint de estatísticas.
func (s *MemoryStatsStore) Totals() map[domain.Outcome]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total.clone()
}

func (s *MemoryStatsStore) ByRoute() map[domain.Route]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Route]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v.clone()
	}
	return out
}

func (s *MemoryStatsStore) ByKey() map[domain.Key]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Key]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v.clone()
	}
	return out
}

func (s *MemoryStatsStore) Reasons() map[domain.Reason]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Reason]int64, len(s.reasons))
	for k, v := range s.reasons {
		out[k] = v
	}
	return out
}
