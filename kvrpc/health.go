package kvrpc

import (
	"context"
	"net/http"
	"time"

	"github.com/acronis/go-appkit/httpserver"
	"github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/log"
)

// HealthCheck retorna erro se a dependência não estiver saudável.
type HealthCheck func(ctx context.Context) error

// HealthHandler responde GET /healthz com {"components":{"<nome>":bool}}:
// 200 se todas as checagens passarem, 503 se alguma falhar.
// Cada checagem roda com o timeout informado (padrão 1s).
func HealthHandler(checks map[string]HealthCheck, timeout time.Duration, logger log.FieldLogger) http.Handler {
	if timeout <= 0 {
		timeout = time.Second
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	return httpserver.NewHealthCheckHandlerContext(func(ctx context.Context) (httpserver.HealthCheckResult, error) {
		reqLogger := logger
		if l := middleware.GetLoggerFromContext(ctx); l != nil {
			reqLogger = l
		}
		result := make(httpserver.HealthCheckResult, len(checks))
		for name, check := range checks {
			result[name] = runHealthCheck(ctx, name, check, timeout, reqLogger)
		}
		return result, ctx.Err()
	})
}

func runHealthCheck(
	ctx context.Context, name string, check HealthCheck, timeout time.Duration, logger log.FieldLogger,
) httpserver.HealthCheckStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		logger.Warn("health check failed", log.String("component", name), log.Error(err))
		return httpserver.HealthCheckStatusFail
	}
	return httpserver.HealthCheckStatusOK
}
