// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryClientStore: janela deslizante + bloqueios em memória (um processo)
//   - RedisClientStore: o mesmo estado em Redis, para várias instâncias
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore, RedisStatsStore, PrometheusStats, EventHub: destinos
//     das estatísticas de decisão
package infra
