package webhookguard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"webhook-gateway/middleware/webhookguard/application"
	"webhook-gateway/middleware/webhookguard/domain"

	"github.com/felixge/httpsnoop"
	"go.uber.org/zap"
)

const (
	DefaultWebhookPath  = "/telegram/webhook/"
	DefaultMaxBodyBytes = 1 << 20
)

type Options struct {
	Store  domain.ClientStore
	Limits domain.Limits
	Stats  domain.StatsStore
	// Throttle é opcional e só vale para rotas fora do webhook.
	Throttle           domain.LimiterStore
	ThrottleRetryAfter time.Duration

	// KeyFn/KeyHeader só valem para o throttle das rotas fora do webhook.
	// Bloqueio e rate limit do webhook são sempre por IP: um header escolhido
	// pelo cliente não pode servir de chave para eles.
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	// WebhookPath: requisições cujo path contém este trecho passam pela
	// validação e pelo rate limit.
	WebhookPath  string
	MaxBodyBytes int64

	Logger *zap.Logger
	Clock  domain.Clock
}

// Guard compõe gate, validação e rate limit em um único middleware.
// O estado compartilhado vive no Store; Guard em si é imutável após New.
type Guard struct {
	gate      application.Gate
	counter   application.RateCounter
	validator application.Validator
	throttle  application.Throttle

	store       domain.ClientStore
	stats       domain.StatsStore
	keyFn       KeyFunc
	trustXFF    bool
	webhookPath string
	maxBody     int64
	limits      domain.Limits
	log         *zap.Logger
}

func New(opts Options) (*Guard, error) {
	if opts.Store == nil {
		return nil, errors.New("webhookguard: client store is required")
	}
	if opts.Limits == (domain.Limits{}) {
		opts.Limits = domain.DefaultLimits()
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.WebhookPath == "" {
		opts.WebhookPath = DefaultWebhookPath
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	counter, err := application.NewRateCounter(opts.Store, opts.Limits, opts.Clock)
	if err != nil {
		return nil, fmt.Errorf("webhookguard: %w", err)
	}

	return &Guard{
		gate: application.Gate{
			Store:         opts.Store,
			BlockDuration: opts.Limits.BlockDuration,
			Clock:         opts.Clock,
		},
		counter:  counter,
		throttle: application.Throttle{Store: opts.Throttle, RetryAfter: opts.ThrottleRetryAfter},

		store:       opts.Store,
		stats:       opts.Stats,
		keyFn:       opts.KeyFn,
		trustXFF:    opts.TrustXForwardedFor,
		webhookPath: opts.WebhookPath,
		maxBody:     opts.MaxBodyBytes,
		limits:      opts.Limits,
		log:         opts.Logger,
	}, nil
}

// Middleware é o atalho para New(opts).Wrap.
func Middleware(opts Options) (func(next http.Handler) http.Handler, error) {
	g, err := New(opts)
	if err != nil {
		return nil, err
	}
	return g.Wrap, nil
}

// IsWebhook reporta se o path é da rota protegida.
func (g *Guard) IsWebhook(r *http.Request) bool {
	return strings.Contains(r.URL.Path, g.webhookPath)
}

func (g *Guard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		key := ClientIP(r, g.trustXFF)
		route := domain.RouteAPI
		if g.IsWebhook(r) {
			route = domain.RouteWebhook
		}

		SetSecurityHeaders(w.Header())

		var (
			status int
			wrote  bool
		)
		// os headers de segurança são reaplicados logo antes da primeira escrita,
		// por cima do que o próximo handler (ou o upstream) tenha colocado
		mark := func(code int) {
			if !wrote {
				SetSecurityHeaders(w.Header())
				wrote, status = true, code
			}
		}
		ww := httpsnoop.Wrap(w, httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(code int) {
					mark(code)
					next(code)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(b []byte) (int, error) {
					mark(http.StatusOK)
					return next(b)
				}
			},
			ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
				return func(src io.Reader) (int64, error) {
					mark(http.StatusOK)
					return next(src)
				}
			},
		})

		err := g.serve(ww, r, domain.Key(key), route, next)

		outcome := domain.OutcomeAllowed
		var reason domain.Reason
		if err != nil {
			// reject escreve pelo ww, então status já reflete a resposta enviada
			outcome, reason = g.reject(ww, r, key, err, wrote)
		}
		if !wrote {
			// handler terminou sem escrever: net/http envia 200 com o header atual
			SetSecurityHeaders(w.Header())
			status = http.StatusOK
		}

		g.record(context.WithoutCancel(r.Context()), domain.StatsEvent{
			Key:     domain.Key(key),
			Outcome: outcome,
			Reason:  reason,
			Method:  r.Method,
			Route:   route,
			At:      time.Now(),
		})
		g.log.Info("request processed",
			zap.String("client_ip", key),
			zap.String("method", r.Method),
			zap.String("route", string(route)),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// serve percorre gate -> (webhook) validação -> rate limit -> próximo handler.
// Rejeições voltam como erros tipados do domain; panics viram ErrInternal.
func (g *Guard) serve(w http.ResponseWriter, r *http.Request, key domain.Key, route domain.Route, next http.Handler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			err = fmt.Errorf("%w: panic: %v", domain.ErrInternal, p)
		}
	}()

	ctx := r.Context()

	blocked, err := g.gate.IsBlocked(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: gate: %w", domain.ErrInternal, err)
	}
	if blocked {
		return domain.ErrBlockedClient
	}

	if route != domain.RouteWebhook {
		if dec := g.throttle.Decide(domain.Key(g.keyFn(r))); !dec.Allowed {
			w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
			return domain.ErrThrottled
		}
		next.ServeHTTP(w, r)
		return nil
	}

	res := g.validate(w, r)
	if !res.OK() {
		return res.Err()
	}

	v, err := g.counter.RecordAndCheck(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: rate counter: %w", domain.ErrInternal, err)
	}
	if v.Limited {
		w.Header().Set("Retry-After", formatSeconds(g.limits.BlockDuration))
		return fmt.Errorf("%w: %s window (minute=%d hour=%d)", domain.ErrRateLimited, v.Window, v.MinuteCount, v.HourCount)
	}

	g.log.Info("webhook request",
		zap.String("client_ip", string(key)),
		zap.String("update_id", res.Update.ID),
		zap.String("type", string(res.Update.Kind)),
		zap.Int("size", res.Update.Size),
	)

	next.ServeHTTP(w, r)
	return nil
}

// validate lê o corpo (limitado a maxBody) só depois de aceitar o
// Content-Type e o devolve à requisição para o próximo handler.
func (g *Guard) validate(w http.ResponseWriter, r *http.Request) domain.Validation {
	read := func() ([]byte, error) {
		if r.Body == nil {
			return nil, nil
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.maxBody))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		return body, err
	}
	return g.validator.Validate(r.Header.Get("Content-Type"), read)
}

// reject é a única borda de erro: classifica, loga e responde.
// Se o próximo handler já começou a responder, só loga.
func (g *Guard) reject(w http.ResponseWriter, r *http.Request, key string, err error, wrote bool) (domain.Outcome, domain.Reason) {
	fields := []zap.Field{
		zap.String("client_ip", key),
		zap.String("method", r.Method),
		zap.Error(err),
	}

	var (
		outcome domain.Outcome
		reason  domain.Reason
		msg     string
	)
	switch ipe, invalid := domain.IsInvalidPayload(err); {
	case errors.Is(err, domain.ErrBlockedClient):
		outcome, msg = domain.OutcomeBlocked, msgAccessDenied
		g.log.Warn("blocked client attempted access", fields...)
	case invalid:
		outcome, reason, msg = domain.OutcomeInvalid, ipe.Reason, msgInvalidRequest
		g.log.Warn("invalid webhook request", append(fields, zap.String("reason", string(ipe.Reason)))...)
	case errors.Is(err, domain.ErrRateLimited):
		outcome, msg = domain.OutcomeRateLimited, msgRateLimited
		g.log.Warn("rate limit exceeded, client blocked", append(fields, zap.Duration("block_for", g.limits.BlockDuration))...)
	case errors.Is(err, domain.ErrThrottled):
		outcome, msg = domain.OutcomeThrottled, msgRateLimited
		g.log.Warn("request throttled", fields...)
	default:
		outcome, msg = domain.OutcomeError, msgInternal
		g.log.Error("guard failure", append(fields, zap.String("path", r.URL.Path), zap.Bool("response_started", wrote))...)
	}

	if !wrote {
		writeError(w, statusFor(outcome), msg)
	}
	return outcome, reason
}

func statusFor(o domain.Outcome) int {
	switch o {
	case domain.OutcomeBlocked:
		return http.StatusForbidden
	case domain.OutcomeInvalid:
		return http.StatusBadRequest
	case domain.OutcomeRateLimited, domain.OutcomeThrottled:
		return http.StatusTooManyRequests
	case domain.OutcomeError:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func (g *Guard) record(ctx context.Context, ev domain.StatsEvent) {
	if g.stats == nil {
		return
	}
	if err := g.stats.Record(ctx, ev); err != nil {
		g.log.Warn("stats record failed", zap.Error(err))
	}
}
