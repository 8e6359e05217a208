package webhookguard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"webhook-gateway/middleware/webhookguard/domain"
	"webhook-gateway/middleware/webhookguard/infra"
)

func TestStatsHandler_ReflectsBlocks(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	g, err := New(Options{
		Store:  infra.NewMemoryClientStore(),
		Limits: domain.Limits{PerMinute: 3, PerHour: 100, BlockDuration: time.Minute},
		Stats:  stats,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	calls := 0
	h := g.Wrap(okHandler(&calls))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), webhookRequest("1.2.3.4", validUpdate()))
	}
	h.ServeHTTP(httptest.NewRecorder(), webhookRequest("5.6.7.8", validUpdate()))

	w := httptest.NewRecorder()
	StatsHandler(g, stats).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/admin/security-stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got SecurityStats
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "active" {
		t.Fatalf("expected active status, got %q", got.Status)
	}
	if got.BlockedIPs != 1 {
		t.Fatalf("expected 1 blocked ip, got %d", got.BlockedIPs)
	}
	if got.ActiveRateLimits != 2 || got.TotalRequests != 3 {
		t.Fatalf("expected 2 clients / 3 requests, got %+v", got)
	}
	if got.Decisions[domain.OutcomeAllowed] != 3 || got.Decisions[domain.OutcomeRateLimited] != 1 {
		t.Fatalf("unexpected decisions: %+v", got.Decisions)
	}
}

func TestStatsHandler_StoreWithoutReporter(t *testing.T) {
	g, err := New(Options{Store: brokenStore{}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	st, err := g.SecurityStats(t.Context())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Status != "active" || st.BlockedIPs != 0 {
		t.Fatalf("expected zeroed active stats, got %+v", st)
	}
}
