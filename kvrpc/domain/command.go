package domain

// Command é a união fechada dos comandos aceitos pelos atores.
// Os comandos são imutáveis depois de criados; a posse passa de quem
// submete para a fila e da fila para o executor do ator.
type Command interface {
	commandName() string
}

// StorageCommand é o subconjunto aceito pelo ator de storage (Get | Set).
type StorageCommand interface {
	Command
	storageCommand()
}

type GetCommand struct {
	Key   string
	Reply Reply[string]
}

type SetCommand struct {
	Key   string
	Value string
	Reply Reply[struct{}]
}

// CheckLimitCommand pergunta se a identidade do cliente estourou o orçamento
// da janela atual. A resposta true significa "acima do limite".
type CheckLimitCommand struct {
	Identity string
	Reply    Reply[bool]
}

func NewGetCommand(key string) GetCommand {
	return GetCommand{Key: key, Reply: NewReply[string]()}
}

func NewSetCommand(key, value string) SetCommand {
	return SetCommand{Key: key, Value: value, Reply: NewReply[struct{}]()}
}

func NewCheckLimitCommand(identity string) CheckLimitCommand {
	return CheckLimitCommand{Identity: identity, Reply: NewReply[bool]()}
}

func (GetCommand) commandName() string        { return "get" }
func (SetCommand) commandName() string        { return "set" }
func (CheckLimitCommand) commandName() string { return "check_limit" }

func (GetCommand) storageCommand() {}
func (SetCommand) storageCommand() {}

// CommandName retorna o nome usado em logs e métricas.
func CommandName(c Command) string {
	if c == nil {
		return "unknown"
	}
	return c.commandName()
}
