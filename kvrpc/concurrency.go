package kvrpc

import (
	"errors"
	"net/http"
	"time"

	"kv-gateway/kvrpc/application"
	"kv-gateway/kvrpc/infra"
)

type ConcurrencyOptions struct {
	// Max é o número de requisições RPC em voo. <= 0 desliga o limite.
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// RetryAfter, se > 0, vai no header Retry-After da rejeição.
	RetryAfter time.Duration
	// Metrics recebe a ocupação do pool. Opcional.
	Metrics infra.MetricsCollector
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewInFlightPool("rpc", opts.Max, opts.Metrics),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				// cliente desistiu: não há para quem responder
				if !errors.Is(err, application.ErrNoSlot) {
					return
				}
				if opts.RetryAfter > 0 {
					w.Header().Set("Retry-After", formatSeconds(opts.RetryAfter))
				}
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
