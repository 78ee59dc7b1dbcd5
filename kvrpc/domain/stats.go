package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do rate limit para uma chamada RPC.
//
// Method é o método JSON-RPC (get/set). Cuidado com cardinalidade: guardar
// Identity sem controle pode explodir o número de chaves no Redis.
type StatsEvent struct {
	Identity string
	Allowed  bool
	Method   string

	At time.Time
}

// StatsStore é a estratégia de persistência das estatísticas de decisão.
//
// O dispatcher trata erro como best-effort (não derruba a chamada).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
