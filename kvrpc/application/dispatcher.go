package application

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"

	"kv-gateway/kvrpc/domain"
)

// Dispatcher valida a chamada, consulta o rate limit e só então fala com o storage.
//
// A ordem é fixa para todo método: validação -> limiter -> storage.
// Chamadas inválidas não consomem orçamento do cliente.
type Dispatcher struct {
	Limiter domain.LimitChecker
	Storage domain.Storage
	// Stats é opcional.
	Stats  domain.StatsStore
	Logger log.FieldLogger
}

// Dispatch executa a chamada em nome de identity.
//
// Erros retornados (verificar com errors.Is):
//   - domain.ErrMethodNotFound, domain.ErrInvalidParams: erro do cliente;
//   - domain.ErrRateLimited: orçamento esgotado ou limiter indisponível;
//   - domain.ErrNotFound: get de chave inexistente;
//   - qualquer outro: falha interna (backend, fila, ator encerrado).
func (d Dispatcher) Dispatch(ctx context.Context, req domain.Request, identity string) (string, error) {
	want, ok := domain.Arity(req.Method)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrMethodNotFound, req.Method)
	}
	if len(req.Params) != want {
		return "", &domain.ParamsError{Method: req.Method, Want: want, Got: len(req.Params)}
	}
	if req.Params[0] == "" {
		return "", domain.ErrEmptyKey
	}

	limited, err := d.limitReached(ctx, identity)
	d.record(ctx, identity, req.Method, !limited)
	if limited {
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
		return "", domain.ErrRateLimited
	}

	switch req.Method {
	case domain.MethodGet:
		return d.Storage.Get(ctx, req.Params[0])
	default:
		if err := d.Storage.Set(ctx, req.Params[0], req.Params[1]); err != nil {
			return "", err
		}
		return domain.SetAck, nil
	}
}

// limitReached é fail-closed: sem limiter configurado ou com erro, a chamada é barrada.
func (d Dispatcher) limitReached(ctx context.Context, identity string) (bool, error) {
	if d.Limiter == nil {
		return true, fmt.Errorf("%w: no limiter configured", domain.ErrBackend)
	}
	limited, err := d.Limiter.LimitReached(ctx, identity)
	if err != nil {
		return true, err
	}
	return limited, nil
}

func (d Dispatcher) record(ctx context.Context, identity, method string, allowed bool) {
	if d.Stats == nil {
		return
	}
	err := d.Stats.Record(ctx, domain.StatsEvent{
		Identity: identity,
		Allowed:  allowed,
		Method:   method,
		At:       time.Now(),
	})
	if err != nil && d.Logger != nil {
		d.Logger.Warn("failed to record stats", log.Error(err))
	}
}
