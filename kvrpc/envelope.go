package kvrpc

import (
	"bytes"
	"encoding/json"
)

const jsonRPCVersion = "2.0"

type requestEnvelope struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	ID      json.RawMessage   `json:"id"`
	Params  []json.RawMessage `json:"params"`
}

// rpcError é o objeto "error" do JSON-RPC.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// responseEnvelope carrega result ou error, nunca os dois.
// ID nil é serializado como null (ex.: parse error).
type responseEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  *string         `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

func resultResponse(id json.RawMessage, result string) responseEnvelope {
	return responseEnvelope{JSONRPC: jsonRPCVersion, Result: &result, ID: id}
}

func errorResponse(id json.RawMessage, e *rpcError) responseEnvelope {
	return responseEnvelope{JSONRPC: jsonRPCVersion, Error: e, ID: id}
}

// stringParams exige que todos os params sejam strings JSON; null não é string.
func stringParams(raw []json.RawMessage) ([]string, bool) {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if !bytes.HasPrefix(bytes.TrimSpace(p), []byte(`"`)) {
			return nil, false
		}
		var s string
		if err := json.Unmarshal(p, &s); err != nil {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
