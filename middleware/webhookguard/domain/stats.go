package domain

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeAllowed     Outcome = "allowed"
	OutcomeBlocked     Outcome = "blocked"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeThrottled   Outcome = "throttled"
	OutcomeError       Outcome = "error"
)

// Outcomes na ordem usada em relatórios.
var Outcomes = []Outcome{
	OutcomeAllowed, OutcomeBlocked, OutcomeInvalid,
	OutcomeRateLimited, OutcomeThrottled, OutcomeError,
}

type Route string

const (
	RouteWebhook Route = "webhook"
	RouteAPI     Route = "api"
)

// StatsEvent representa uma decisão do guard.
//
// Route é a classe da rota e não o path: o path do webhook carrega o token do
// bot e não pode ir para logs/Redis/Prometheus.
type StatsEvent struct {
	Key     Key
	Outcome Outcome
	Reason  Reason

	Method string
	Route  Route

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas.
//
// O middleware trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
