package domain

import (
	"errors"
	"fmt"
)

// Erros de cliente: rejeitados antes de qualquer ator.
var (
	ErrMethodNotFound = errors.New("method not available")
	ErrInvalidParams  = errors.New("invalid params")
	// ErrEmptyKey também satisfaz errors.Is(err, ErrInvalidParams).
	ErrEmptyKey = fmt.Errorf("%w: key must not be empty", ErrInvalidParams)
)

// ErrRateLimited indica orçamento esgotado ou limiter indisponível (fail-closed).
var ErrRateLimited = errors.New("rate limit reached")

// Erros de storage.
var (
	ErrNotFound = errors.New("key not found")
	ErrBackend  = errors.New("backend error")
)

// Erros da fila de comandos de um ator.
var (
	ErrQueueClosed = errors.New("actor queue closed")
	// ErrQueueFull também satisfaz errors.Is(err, ErrQueueClosed).
	ErrQueueFull = fmt.Errorf("%w: queue full", ErrQueueClosed)
	// ErrActorTerminated: o ator saiu sem escrever no reply slot.
	ErrActorTerminated = errors.New("actor terminated before replying")
)

// IsClientError informa se err deve ser tratado como erro do cliente.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMethodNotFound) || errors.Is(err, ErrInvalidParams)
}
