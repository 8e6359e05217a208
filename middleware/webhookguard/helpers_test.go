package webhookguard

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testWebhook = "/telegram/webhook/123:abc"

func webhookRequest(ip, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "http://example"+testWebhook, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.RemoteAddr = ip + ":4242"
	return r
}

func validUpdate() string {
	return `{"update_id":1,"message":{"text":"oi"}}`
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func assertSecurityHeaders(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	for _, kv := range securityHeaders {
		if got := w.Header().Get(kv[0]); got != kv[1] {
			t.Fatalf("expected %s=%q, got %q (status %d)", kv[0], kv[1], got, w.Code)
		}
	}
}

func assertErrorBody(t *testing.T, w *httptest.ResponseRecorder, msg string) {
	t.Helper()
	want := `{"error":"` + msg + `"}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Fatalf("expected body %s, got %s", want, got)
	}
}
