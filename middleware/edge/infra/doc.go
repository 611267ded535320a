// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryCounterStore: janela fixa em memória, tabela particionada com mutex por shard
//   - RedisCounterStore: a mesma janela fixa num script Lua, compartilhada entre instâncias
//   - TokenBucketStore: alternativa opcional usando golang.org/x/time/rate
//   - BreakerStore: circuit breaker (sony/gobreaker) com fallback local
//   - MemoryStatsStore, RedisStatsStore, PrometheusStats: sinks de estatística
//   - HeaderLocator: IP e região a partir dos headers da borda
//   - ChanPool: semáforo simples para limite de concorrência
package infra
