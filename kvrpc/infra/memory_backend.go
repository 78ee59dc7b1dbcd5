package infra

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"kv-gateway/kvrpc/domain"
)

// ErrBackendClosed é retornado pelo MemoryBackend depois de Close.
var ErrBackendClosed = errors.New("memory backend closed")

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero: sem expiração
}

// MemoryBackend implementa domain.Backend em memória, com a mesma semântica
// do RedisBackend (inclusive o contador saturado com TTL condicional).
//
// Útil para testes e para o devserver. Não é indicado para produção:
// o estado não é compartilhado entre processos.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	closed  bool
}

type MemoryBackendOption func(*MemoryBackend)

// WithClock injeta o relógio (testes de janela).
func WithClock(now func() time.Time) MemoryBackendOption {
	return func(b *MemoryBackend) { b.now = now }
}

func NewMemoryBackend(opts ...MemoryBackendOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrBackendClosed
	}
	ent, ok := b.lookup(key)
	if !ok {
		return "", domain.ErrNotFound
	}
	return ent.value, nil
}

func (b *MemoryBackend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	// como no SET do Redis, descarta qualquer TTL anterior
	b.entries[key] = memoryEntry{value: value}
	return nil
}

func (b *MemoryBackend) IncrementWindow(_ context.Context, key string, window time.Duration, max uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBackendClosed
	}

	ent, _ := b.lookup(key)
	var current uint64
	if ent.value != "" {
		n, err := strconv.ParseUint(ent.value, 10, 64)
		if err != nil {
			return 0, errors.New("value is not an integer or out of range")
		}
		current = n
	}
	if current < max {
		current++
	}
	ent.value = strconv.FormatUint(current, 10)
	if ent.expiresAt.IsZero() {
		ent.expiresAt = b.now().Add(window)
	}
	b.entries[key] = ent
	return current, nil
}

func (b *MemoryBackend) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	return nil
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// TTL retorna o tempo restante da chave; ok=false se não existir ou não expirar.
func (b *MemoryBackend) TTL(key string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ent, ok := b.lookup(key)
	if !ok || ent.expiresAt.IsZero() {
		return 0, false
	}
	return ent.expiresAt.Sub(b.now()), true
}

// lookup remove chaves expiradas de forma preguiçosa. Chamar com mu travado.
func (b *MemoryBackend) lookup(key string) (memoryEntry, bool) {
	ent, ok := b.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !ent.expiresAt.IsZero() && !b.now().Before(ent.expiresAt) {
		delete(b.entries, key)
		return memoryEntry{}, false
	}
	return ent, true
}
