package kvrpc

import (
	"errors"

	"kv-gateway/kvrpc/domain"
)

// Códigos de erro JSON-RPC devolvidos pelo gateway.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeKeyNotFound    = -32004
	CodeRateLimited    = 100429
)

var (
	errParse          = &rpcError{Code: CodeParseError, Message: "Parse error"}
	errInvalidRequest = &rpcError{Code: CodeInvalidRequest, Message: "Invalid request"}
	errParamsNotText  = &rpcError{Code: CodeInvalidParams, Message: "Params must be strings"}
)

// toRPCError traduz o erro do dispatcher para o objeto error do JSON-RPC.
// Detalhes internos (backend, fila) nunca vão para o cliente.
func toRPCError(err error) *rpcError {
	var paramsErr *domain.ParamsError
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return &rpcError{Code: CodeRateLimited, Message: "Rate limit reached"}
	case errors.Is(err, domain.ErrMethodNotFound):
		return &rpcError{Code: CodeMethodNotFound, Message: "Method not available"}
	case errors.As(err, &paramsErr):
		return &rpcError{Code: CodeInvalidParams, Message: paramsErr.Error()}
	case errors.Is(err, domain.ErrEmptyKey):
		return &rpcError{Code: CodeInvalidParams, Message: "Key must not be empty"}
	case errors.Is(err, domain.ErrInvalidParams):
		return &rpcError{Code: CodeInvalidParams, Message: "Invalid params"}
	case errors.Is(err, domain.ErrNotFound):
		return &rpcError{Code: CodeKeyNotFound, Message: "Key not found"}
	default:
		return &rpcError{Code: CodeInternalError, Message: "Internal error"}
	}
}
