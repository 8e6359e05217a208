package webhookguard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"webhook-gateway/middleware/webhookguard/infra"
)

func TestInflightMiddleware_RejectsWhenFull(t *testing.T) {
	pool := infra.NewChanPool(1)
	release, ok := pool.Acquire(t.Context())
	if !ok {
		t.Fatalf("expected to take the only slot")
	}
	defer release()

	calls := 0
	h := InflightMiddleware(InflightOptions{Pool: pool, AcquireTimeout: 10 * time.Millisecond})(okHandler(&calls))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	assertErrorBody(t, w, "Service unavailable")
	assertSecurityHeaders(t, w)
	if calls != 0 {
		t.Fatalf("expected next handler not to run")
	}
}

func TestInflightMiddleware_ReleasesSlotAfterRequest(t *testing.T) {
	pool := infra.NewChanPool(1)
	inUse := -1
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inUse = pool.InUse()
	})
	h := InflightMiddleware(InflightOptions{Pool: pool, AcquireTimeout: time.Second})(next)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if inUse != 1 {
		t.Fatalf("expected one slot held while serving, got %d", inUse)
	}
	if pool.InUse() != 0 {
		t.Fatalf("expected slot released, in use %d", pool.InUse())
	}
}

func TestInflightMiddleware_NilPoolIsTransparent(t *testing.T) {
	calls := 0
	h := InflightMiddleware(InflightOptions{})(okHandler(&calls))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if calls != 1 {
		t.Fatalf("expected request forwarded")
	}
}
