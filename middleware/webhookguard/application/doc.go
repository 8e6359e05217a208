// Package application contém os casos de uso do guard de webhook:
// Gate (bloqueio temporário), RateCounter (janela deslizante), Validator
// (payload do Telegram), Throttle (token bucket opcional) e Admission
// (limite de concorrência).
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: RateCounter.RecordAndCheck(ctx, key) retorna um Verdict.
package application
