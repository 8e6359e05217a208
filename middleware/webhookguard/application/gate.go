package application

import (
	"context"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"
)

// Gate decide se um cliente está bloqueado. É a checagem barata que roda
// antes de qualquer outra coisa.
type Gate struct {
	Store         domain.ClientStore
	BlockDuration time.Duration
	Clock         domain.Clock
}

func (g Gate) IsBlocked(ctx context.Context, key domain.Key) (bool, error) {
	if g.Store == nil {
		return false, nil
	}
	d := g.BlockDuration
	if d <= 0 {
		d = domain.DefaultLimits().BlockDuration
	}
	return g.Store.IsBlocked(ctx, key, g.Clock.Now(), d)
}
