package domain

import "fmt"

// Métodos reconhecidos.
const (
	MethodGet = "get"
	MethodSet = "set"
)

// SetAck é o resultado de um set bem-sucedido.
const SetAck = "value inserted"

var methodArity = map[string]int{
	MethodGet: 1,
	MethodSet: 2,
}

// Arity retorna quantos parâmetros o método exige; ok=false para método desconhecido.
func Arity(method string) (n int, ok bool) {
	n, ok = methodArity[method]
	return n, ok
}

// Request é a chamada já decodificada, sem nada de JSON ou HTTP.
type Request struct {
	Method string
	// ID é o id como veio no JSON; usado só em log.
	ID     string
	Params []string
}

// ParamsError é a falha de aridade. errors.Is(err, ErrInvalidParams) é true.
type ParamsError struct {
	Method string
	Want   int
	Got    int
}

func (e *ParamsError) Error() string {
	if e.Want == 1 {
		return fmt.Sprintf("One parameter is required for %s function", e.Method)
	}
	return fmt.Sprintf("%s parameters are required for %s function", numberWord(e.Want), e.Method)
}

func (e *ParamsError) Unwrap() error { return ErrInvalidParams }

func numberWord(n int) string {
	switch n {
	case 2:
		return "Two"
	case 3:
		return "Three"
	default:
		return fmt.Sprint(n)
	}
}
