// Package kvrpc expõe o gateway key-value como JSON-RPC sobre HTTP.
//
// Principais peças:
//   - Handler: decodifica o envelope JSON-RPC, extrai a identidade do cliente
//     (KeyFunc) e delega ao application.Dispatcher;
//   - ConcurrencyMiddleware: limita requisições em voo;
//   - NewRouter: monta o chi.Router com request id, access log, recovery,
//     /healthz e /metrics.
//
// Toda resposta RPC sai com HTTP 200 e exatamente um de result/error.
package kvrpc
