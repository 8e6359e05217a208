package application

import (
	"time"

	"webhook-gateway/middleware/webhookguard/domain"
)

// Throttle é o limite geral (token bucket) das rotas fora do webhook.
// Ao contrário do RateCounter, negar aqui não impõe bloqueio.
type Throttle struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (t Throttle) Decide(key domain.Key) domain.Decision {
	if t.Store == nil {
		return domain.Decision{Allowed: true}
	}
	lim := t.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.Decision{Allowed: true}
	}

	retry := t.RetryAfter
	if retry <= 0 {
		retry = time.Second
	}
	return domain.Decision{Allowed: false, RetryAfter: retry}
}
