package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/acronis/go-appkit/log"

	"kv-gateway/kvrpc/domain"
)

// DefaultStorageKeyPrefix separa as chaves dos clientes dos contadores do limiter.
const DefaultStorageKeyPrefix = "kv:"

// StorageOptions é fixada na construção.
type StorageOptions struct {
	// KeyPrefix é concatenado à chave do cliente antes de ir ao backend.
	// Padrão: "kv:".
	KeyPrefix string
}

func (o StorageOptions) withDefaults() StorageOptions {
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultStorageKeyPrefix
	}
	return o
}

// StorageActor traduz comandos Get/Set em chamadas ao backend.
//
// Toda chave recebe o prefixo de StorageOptions, então um cliente nunca
// alcança chaves fora do próprio namespace (ex.: contadores do rate limit).
type StorageActor struct {
	*Actor[domain.StorageCommand]
	kv     domain.KVStore
	prefix string
}

var _ domain.Storage = (*StorageActor)(nil)

// NewStorageActor cria o ator de storage. O backend passa a pertencer ao
// ator e é fechado quando o loop termina.
func NewStorageActor(backend domain.Backend, storage StorageOptions, opts ActorOptions) *StorageActor {
	storage = storage.withDefaults()
	s := &StorageActor{kv: backend, prefix: storage.KeyPrefix}
	s.Actor = newActor[domain.StorageCommand]("storage", s.handle, backend.Close, opts)
	return s
}

// Key deriva a chave do backend a partir da chave do cliente.
func (s *StorageActor) Key(key string) string {
	return s.prefix + key
}

// Get submete um GetCommand e espera a resposta.
func (s *StorageActor) Get(ctx context.Context, key string) (string, error) {
	cmd := domain.NewGetCommand(key)
	if err := s.Submit(ctx, cmd); err != nil {
		return "", err
	}
	return cmd.Reply.Wait(ctx, s.Done())
}

// Set submete um SetCommand e espera o ack.
func (s *StorageActor) Set(ctx context.Context, key, value string) error {
	cmd := domain.NewSetCommand(key, value)
	if err := s.Submit(ctx, cmd); err != nil {
		return err
	}
	_, err := cmd.Reply.Wait(ctx, s.Done())
	return err
}

func (s *StorageActor) handle(ctx context.Context, cmd domain.StorageCommand) string {
	switch c := cmd.(type) {
	case domain.GetCommand:
		v, err := s.kv.Get(ctx, s.Key(c.Key))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.Reply.Send("", err)
				return outcomeNotFound
			}
			err = wrapBackendErr("get", c.Key, err)
			s.logger.Error("backend get failed", log.String("key", c.Key), log.Error(err))
			c.Reply.Send("", err)
			return outcomeError
		}
		c.Reply.Send(v, nil)
		return outcomeOK

	case domain.SetCommand:
		if err := s.kv.Set(ctx, s.Key(c.Key), c.Value); err != nil {
			err = wrapBackendErr("set", c.Key, err)
			s.logger.Error("backend set failed", log.String("key", c.Key), log.Error(err))
			c.Reply.Send(struct{}{}, err)
			return outcomeError
		}
		c.Reply.Send(struct{}{}, nil)
		return outcomeOK

	default:
		panic(fmt.Sprintf("storage actor: unexpected command %T", cmd))
	}
}

func wrapBackendErr(op, key string, err error) error {
	if errors.Is(err, domain.ErrBackend) {
		return err
	}
	return fmt.Errorf("%w: %s %q: %w", domain.ErrBackend, op, key, err)
}
