// Package webhookguard fornece middlewares HTTP (net/http) que protegem a rota
// de webhook do Telegram: bloqueio temporário por IP, validação do payload,
// rate limit por janela deslizante e headers de segurança.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (gate, rate counter, validação, throttle, admissão)
//   - infra: implementações concretas (memória, Redis, token bucket, stats)
//   - webhookguard (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo de uma requisição:
//
//  1. Extrai a chave do cliente (IP/header/XFF)
//  2. Cliente bloqueado -> 403
//  3. Path de webhook: payload inválido -> 400; limite estourado -> bloqueia e 429
//  4. Caso contrário chama o próximo handler (ex: reverse proxy)
//  5. Qualquer erro inesperado ou panic -> 500 genérico
//
// Os quatro headers de segurança vão em todas as respostas.
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como RATE_PER_MINUTE, RATE_PER_HOUR, BLOCK_DURATION e IP_ALLOWLIST_ENABLED.
package webhookguard
