package application

import (
	"context"
	"errors"
	"time"

	"kv-gateway/kvrpc/domain"
)

// ErrNoSlot indica que nenhuma vaga foi liberada dentro de AcquireTimeout.
var ErrNoSlot = errors.New("no in-flight slot available")

// ConcurrencyService limita quantas chamadas RPC ficam em voo ao mesmo tempo,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.InFlightPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx encerrar;
//   - AcquireTimeout > 0: espera no máximo esse tempo e retorna ErrNoSlot.
//
// Se o ctx do chamador encerrar antes, retorna ctx.Err().
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), err error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, err = s.Pool.Acquire(acqCtx)
	if err == nil {
		return release, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return nil, ErrNoSlot
}
