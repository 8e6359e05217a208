package application

import (
	"context"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"
)

// Admission controla quantas requisições seguem em paralelo para o upstream,
// sem saber nada sobre HTTP.
type Admission struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx da requisição encerrar.
//   - AcquireTimeout > 0: espera no máximo esse tempo.
//
// Sem vaga, retorna domain.ErrOverloaded e release nil.
func (a Admission) Acquire(ctx context.Context) (func(), error) {
	if a.Pool == nil {
		return func() {}, nil
	}

	if a.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.AcquireTimeout)
		defer cancel()
	}

	release, ok := a.Pool.Acquire(ctx)
	if !ok {
		return nil, domain.ErrOverloaded
	}
	return release, nil
}
