package domain

import "context"

// LimitChecker decide se a identidade está acima do orçamento da janela.
type LimitChecker interface {
	LimitReached(ctx context.Context, identity string) (bool, error)
}

// Storage é o acesso serializado ao KV usado pelo dispatcher.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
