package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"errors"
	"time"
)

type Key string

const (
	// MinuteWindow é a janela curta usada para o limite por minuto.
	MinuteWindow = time.Minute
	// HistoryWindow é quanto histórico cada cliente mantém (e a janela do limite por hora).
	HistoryWindow = time.Hour
)

// Limits agrupa os limiares da janela deslizante.
//
// A requisição que dispara a checagem conta para a decisão: com PerMinute=20,
// a 20ª requisição dentro de um minuto já é bloqueada.
type Limits struct {
	PerMinute     int
	PerHour       int
	BlockDuration time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		PerMinute:     20,
		PerHour:       1000,
		BlockDuration: 10 * time.Minute,
	}
}

func (l Limits) Validate() error {
	if l.PerMinute <= 0 {
		return errors.New("per-minute limit must be > 0")
	}
	if l.PerHour <= 0 {
		return errors.New("per-hour limit must be > 0")
	}
	if l.BlockDuration <= 0 {
		return errors.New("block duration must be > 0")
	}
	return nil
}

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// Usado pelo throttle opcional das rotas fora do webhook (token bucket).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: IP, API key, usuário).
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// Clock permite injetar o relógio (testes de janela/expiração sem sleep).
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
