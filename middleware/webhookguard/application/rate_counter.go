package application

import (
	"context"
	"errors"

	"webhook-gateway/middleware/webhookguard/domain"
)

// RateCounter registra a requisição na janela deslizante do cliente e
// decide se ele estourou o limite por minuto ou por hora.
type RateCounter struct {
	Store  domain.ClientStore
	Limits domain.Limits
	Clock  domain.Clock
}

func NewRateCounter(store domain.ClientStore, lim domain.Limits, clock domain.Clock) (RateCounter, error) {
	if store == nil {
		return RateCounter{}, errors.New("client store is required")
	}
	if err := lim.Validate(); err != nil {
		return RateCounter{}, err
	}
	return RateCounter{Store: store, Limits: lim, Clock: clock}, nil
}

// RecordAndCheck retorna Verdict.Limited=true quando o cliente foi bloqueado
// por esta requisição.
func (c RateCounter) RecordAndCheck(ctx context.Context, key domain.Key) (domain.Verdict, error) {
	if c.Store == nil {
		return domain.Verdict{}, nil
	}
	return c.Store.RecordAndCheck(ctx, key, c.Clock.Now(), c.Limits)
}
