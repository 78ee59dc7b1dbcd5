package infra

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/acronis/go-appkit/log"
	"golang.org/x/time/rate"

	"kv-gateway/kvrpc/domain"
)

const (
	DefaultLimitKeyPrefix = "ratelimit:"
	DefaultLimitWindow    = time.Second

	// DefaultCounterMax é o teto do contador saturado.
	DefaultCounterMax uint64 = math.MaxUint32
)

// LimiterOptions é fixada na construção e vale para todas as identidades.
type LimiterOptions struct {
	// Window é a duração da janela fixa. Padrão: 1s.
	Window time.Duration
	// Limit é o número de requisições permitidas por janela.
	Limit uint64
	// KeyPrefix é concatenado à identidade para formar a chave no backend.
	KeyPrefix string
	// CounterMax é onde o contador satura. Padrão: math.MaxUint32.
	CounterMax uint64
}

func (o LimiterOptions) withDefaults() LimiterOptions {
	if o.Window <= 0 {
		o.Window = DefaultLimitWindow
	}
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultLimitKeyPrefix
	}
	if o.CounterMax == 0 {
		o.CounterMax = DefaultCounterMax
	}
	return o
}

// LimiterActor decide se uma identidade esgotou o orçamento da janela atual.
//
// O estado fica inteiro no backend (contador + TTL); o ator não guarda cache
// local, então o estado sobrevive a restart e é compartilhado entre réplicas.
// Se o backend falhar, o ator responde "acima do limite" (fail-closed).
type LimiterActor struct {
	*Actor[domain.CheckLimitCommand]
	counter domain.WindowCounter
	limit   LimiterOptions

	// evita inundar o log durante uma queda do backend
	failClosedLog rate.Sometimes
}

var _ domain.LimitChecker = (*LimiterActor)(nil)

func NewLimiterActor(backend domain.Backend, limit LimiterOptions, opts ActorOptions) (*LimiterActor, error) {
	limit = limit.withDefaults()
	if limit.Limit == 0 {
		return nil, errors.New("limiter: limit must be > 0")
	}
	if limit.Limit >= limit.CounterMax {
		return nil, fmt.Errorf("limiter: limit (%d) must be lower than counter max (%d)", limit.Limit, limit.CounterMax)
	}

	l := &LimiterActor{
		counter:       backend,
		limit:         limit,
		failClosedLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	l.Actor = newActor[domain.CheckLimitCommand]("limiter", l.handle, backend.Close, opts)
	return l, nil
}

func (l *LimiterActor) Options() LimiterOptions { return l.limit }

// Key deriva a chave do backend a partir da identidade do cliente.
func (l *LimiterActor) Key(identity string) string {
	return l.limit.KeyPrefix + identity
}

// LimitReached submete um CheckLimitCommand e espera a decisão.
// Qualquer falha (fila, ator encerrado, backend) resulta em true.
func (l *LimiterActor) LimitReached(ctx context.Context, identity string) (bool, error) {
	cmd := domain.NewCheckLimitCommand(identity)
	if err := l.Submit(ctx, cmd); err != nil {
		return true, err
	}
	over, err := cmd.Reply.Wait(ctx, l.Done())
	if err != nil {
		return true, err
	}
	return over, nil
}

func (l *LimiterActor) handle(ctx context.Context, cmd domain.CheckLimitCommand) string {
	count, err := l.counter.IncrementWindow(ctx, l.Key(cmd.Identity), l.limit.Window, l.limit.CounterMax)
	if err != nil {
		err = fmt.Errorf("%w: increment window: %w", domain.ErrBackend, err)
		l.failClosedLog.Do(func() {
			l.logger.Warn("rate limiter backend unavailable, failing closed",
				log.String("identity", cmd.Identity), log.Error(err))
		})
		cmd.Reply.Send(true, err)
		return outcomeFailClosed
	}

	if count > l.limit.Limit {
		cmd.Reply.Send(true, nil)
		return outcomeLimited
	}
	cmd.Reply.Send(false, nil)
	return outcomeAllowed
}
