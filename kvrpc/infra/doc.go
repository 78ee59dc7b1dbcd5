// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - Actor: fila limitada + goroutine única dona de um backend
//   - StorageActor / LimiterActor: especializações para GET/SET e rate limit
//   - RedisBackend: go-redis + script Lua para o contador de janela fixa
//   - MemoryBackend: mesma semântica em memória (testes, devserver)
//   - RedisStatsStore / MemoryStatsStore: estatísticas de decisão
//   - ChanPool: semáforo simples para limite de requisições em voo
package infra
