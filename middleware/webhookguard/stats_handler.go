package webhookguard

import (
	"context"
	"encoding/json"
	"net/http"

	"webhook-gateway/middleware/webhookguard/domain"

	"go.uber.org/zap"
)

// DecisionTotals é a fonte opcional dos contadores por resultado
// (infra.MemoryStatsStore implementa).
type DecisionTotals interface {
	Totals() map[domain.Outcome]int64
}

type SecurityStats struct {
	ActiveRateLimits int                      `json:"active_rate_limits"`
	BlockedIPs       int                      `json:"blocked_ips"`
	TotalRequests    int                      `json:"total_requests"`
	Status           string                   `json:"middleware_status"`
	Decisions        map[domain.Outcome]int64 `json:"decisions,omitempty"`
}

// SecurityStats descreve o estado do store. Stores que não implementam
// domain.ClientStatsReporter reportam zeros.
func (g *Guard) SecurityStats(ctx context.Context) (SecurityStats, error) {
	out := SecurityStats{Status: "active"}
	rep, ok := g.store.(domain.ClientStatsReporter)
	if !ok {
		return out, nil
	}
	st, err := rep.ClientStats(ctx)
	if err != nil {
		return SecurityStats{}, err
	}
	out.ActiveRateLimits = st.ActiveClients
	out.BlockedIPs = st.BlockedClients
	out.TotalRequests = st.TrackedRequests
	return out, nil
}

// StatsHandler serve SecurityStats em JSON. totals pode ser nil.
func StatsHandler(g *Guard, totals DecisionTotals) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := g.SecurityStats(r.Context())
		if err != nil {
			g.log.Error("security stats failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, msgInternal)
			return
		}
		if totals != nil {
			st.Decisions = totals.Totals()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})
}
