package domain

import (
	"context"
	"time"
)

// ClientStore guarda histórico e bloqueios por cliente.
//
// As duas operações devem ser atômicas por chave: RecordAndCheck faz
// poda -> contagem -> append/bloqueio sem que outra requisição da mesma
// chave intercale no meio.
type ClientStore interface {
	// IsBlocked reporta bloqueio ativo em now; bloqueios expirados são
	// removidos nessa mesma chamada.
	IsBlocked(ctx context.Context, key Key, now time.Time, blockFor time.Duration) (bool, error)
	// RecordAndCheck aplica ClientRecord.Check e, se limitado, impõe um
	// bloqueio em now (sobrescrevendo qualquer bloqueio anterior).
	RecordAndCheck(ctx context.Context, key Key, now time.Time, lim Limits) (Verdict, error)
}

// ClientStats é um retrato do estado de um ClientStore.
type ClientStats struct {
	ActiveClients   int
	BlockedClients  int
	TrackedRequests int
}

// ClientStatsReporter é opcional; stores que sabem se descrever implementam.
type ClientStatsReporter interface {
	ClientStats(ctx context.Context) (ClientStats, error)
}
