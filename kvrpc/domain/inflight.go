package domain

import "context"

// InFlightPool limita quantas chamadas RPC são atendidas ao mesmo tempo.
type InFlightPool interface {
	// Acquire espera uma vaga até o ctx encerrar (retorna ctx.Err()).
	// release pode ser chamada mais de uma vez; só a primeira devolve a vaga.
	Acquire(ctx context.Context) (release func(), err error)

	// InFlight retorna quantas vagas estão ocupadas agora.
	InFlight() int
}
