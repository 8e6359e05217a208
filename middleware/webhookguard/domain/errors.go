package domain

import "errors"

var (
	// ErrBlockedClient: cliente com bloqueio temporário ativo (403).
	ErrBlockedClient = errors.New("client is temporarily blocked")
	// ErrRateLimited: limite da janela deslizante atingido; bloqueio imposto (429).
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrThrottled: token bucket das rotas gerais sem saldo; sem bloqueio (429).
	ErrThrottled = errors.New("request throttled")
	// ErrOverloaded: sem vaga de concorrência dentro do timeout (503).
	ErrOverloaded = errors.New("too many in-flight requests")
	// ErrInternal marca falhas inesperadas (panic, store fora do ar) (500).
	ErrInternal = errors.New("internal error")
)

// InvalidPayloadError carrega o motivo da rejeição (400).
// O motivo vai para o log, nunca para o corpo da resposta.
type InvalidPayloadError struct {
	Reason Reason
}

func (e *InvalidPayloadError) Error() string {
	return "invalid webhook payload: " + string(e.Reason)
}

func IsInvalidPayload(err error) (*InvalidPayloadError, bool) {
	var ipe *InvalidPayloadError
	if errors.As(err, &ipe) {
		return ipe, true
	}
	return nil, false
}
