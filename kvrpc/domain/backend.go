package domain

import (
	"context"
	"time"
)

// KVStore é a parte GET/SET do backend.
//
// Get retorna ErrNotFound quando a chave não existe. Set sobrescreve o valor
// (last write wins) e remove qualquer expiração anterior.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// WindowCounter é a primitiva atômica do rate limit.
//
// Numa única unidade indivisível: incrementa o contador em key com aritmética
// saturada (nunca passa de max), aplica a expiração window somente se a chave
// ainda não tiver uma, e devolve o valor pós-incremento.
type WindowCounter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration, max uint64) (uint64, error)
}

// Backend é o cliente completo de um backend key-value.
// Uma instância pertence exclusivamente a um ator; não é acessada em paralelo.
type Backend interface {
	KVStore
	WindowCounter
	Ping(ctx context.Context) error
	Close() error
}
