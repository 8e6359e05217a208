package main

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"webhook-gateway/middleware/webhookguard"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// gateway junta as peças montadas em main; routes só liga tudo no router.
type gateway struct {
	guard     *webhookguard.Guard
	allowlist webhookguard.AllowlistOptions
	inflight  webhookguard.InflightOptions
	totals    webhookguard.DecisionTotals
	events    webhookguard.EventSource // nil desliga /admin/events
	metrics   prometheus.Gatherer      // nil desliga /metrics

	upstream   http.Handler
	adminToken string
	log        *zap.Logger
}

// routes monta: allowlist -> guard -> rotas; só o proxy passa pelo limite de concorrência.
func (g *gateway) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(webhookguard.AllowlistMiddleware(g.allowlist))
	r.Use(g.guard.Wrap)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(g.requireAdmin)
		r.Method(http.MethodGet, "/admin/security-stats", webhookguard.StatsHandler(g.guard, g.totals))
		if g.events != nil {
			r.Method(http.MethodGet, "/admin/events", webhookguard.EventsHandler(g.events, g.log))
		}
		if g.metrics != nil {
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g.metrics, promhttp.HandlerOpts{}))
		}
	})

	r.With(webhookguard.InflightMiddleware(g.inflight)).Handle("/*", g.upstream)
	return r
}

// requireAdmin exige "Authorization: Bearer <ADMIN_TOKEN>" quando o token está configurado.
func (g *gateway) requireAdmin(next http.Handler) http.Handler {
	if g.adminToken == "" {
		return next
	}
	want := []byte(g.adminToken)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func newProxy(target *url.URL, logger *zap.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error", zap.String("method", r.Method), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Bad gateway"})
	}
	return proxy
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	webhookguard.SetSecurityHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
