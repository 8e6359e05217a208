package infra

import (
	"context"

	"webhook-gateway/middleware/webhookguard/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStats expõe as decisões como contadores Prometheus.
// Labels são só rota e resultado (cardinalidade fixa); IP nunca vira label.
type PrometheusStats struct {
	decisions *prometheus.CounterVec
	reasons   *prometheus.CounterVec
}

func NewPrometheusStats(reg prometheus.Registerer) (*PrometheusStats, error) {
	s := &PrometheusStats{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhook_gateway",
			Name:      "decisions_total",
			Help:      "Guard decisions by route class and outcome.",
		}, []string{"route", "outcome"}),
		reasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhook_gateway",
			Name:      "invalid_payloads_total",
			Help:      "Rejected webhook payloads by validation reason.",
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{s.decisions, s.reasons} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(string(ev.Route), string(ev.Outcome)).Inc()
	if ev.Reason != "" {
		s.reasons.WithLabelValues(string(ev.Reason)).Inc()
	}
	return nil
}
