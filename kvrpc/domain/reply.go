package domain

import "context"

// Result carrega o valor ou a falha de um comando.
type Result[T any] struct {
	Value T
	Err   error
}

// Reply é o reply slot de um comando: canal com capacidade 1, escrito
// exatamente uma vez pelo ator e lido no máximo uma vez por quem submeteu.
//
// Como o buffer comporta a única resposta, o ator nunca bloqueia ao responder,
// mesmo que o submitter tenha desistido de esperar.
type Reply[T any] chan Result[T]

func NewReply[T any]() Reply[T] {
	return make(Reply[T], 1)
}

// Send entrega o resultado. Deve ser chamado uma única vez.
func (r Reply[T]) Send(v T, err error) {
	r <- Result[T]{Value: v, Err: err}
}

// Wait espera o resultado.
//
// actorDone é fechado quando o loop do ator termina; nesse caso, se nenhuma
// resposta foi escrita, retorna ErrActorTerminated em vez de esperar para sempre.
func (r Reply[T]) Wait(ctx context.Context, actorDone <-chan struct{}) (T, error) {
	var zero T
	select {
	case res := <-r:
		return res.Value, res.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-actorDone:
		// o ator pode ter respondido logo antes de sair
		select {
		case res := <-r:
			return res.Value, res.Err
		default:
			return zero, ErrActorTerminated
		}
	}
}
