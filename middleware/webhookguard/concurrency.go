package webhookguard

import (
	"net/http"
	"time"

	"webhook-gateway/middleware/webhookguard/application"
	"webhook-gateway/middleware/webhookguard/domain"

	"go.uber.org/zap"
)

type InflightOptions struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
	Logger         *zap.Logger
}

// InflightMiddleware limita requisições simultâneas encaminhadas ao próximo
// handler; sem vaga dentro do timeout responde 503. Pool nil desliga.
func InflightMiddleware(opts InflightOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	adm := application.Admission{Pool: opts.Pool, AcquireTimeout: opts.AcquireTimeout}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := adm.Acquire(r.Context())
			if err != nil {
				opts.Logger.Warn("no in-flight slot available", zap.String("method", r.Method), zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, msgUnavailable)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
