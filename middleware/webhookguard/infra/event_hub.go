package infra

import (
	"context"
	"sync"

	"webhook-gateway/middleware/webhookguard/domain"
)

// EventHub distribui eventos de segurança para assinantes (stream de admin).
//
// Publicação nunca bloqueia: assinante com buffer cheio perde o evento.
type EventHub struct {
	mu             sync.Mutex
	subs           map[int]chan domain.StatsEvent
	next           int
	includeAllowed bool
	dropped        int64
}

type EventHubOption func(*EventHub)

// WithAllowedEvents inclui decisões "allowed" no stream (desligado por padrão).
func WithAllowedEvents(include bool) EventHubOption {
	return func(h *EventHub) { h.includeAllowed = include }
}

func NewEventHub(opts ...EventHubOption) *EventHub {
	h := &EventHub{subs: make(map[int]chan domain.StatsEvent)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe devolve o canal de eventos e a função que cancela a assinatura.
func (h *EventHub) Subscribe(buffer int) (<-chan domain.StatsEvent, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan domain.StatsEvent, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *EventHub) Record(_ context.Context, ev domain.StatsEvent) error {
	if ev.Outcome == domain.OutcomeAllowed && !h.includeAllowed {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped++
		}
	}
	return nil
}

func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *EventHub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
