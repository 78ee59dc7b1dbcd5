package kvrpc

import (
	"net/http"
	"time"

	"github.com/acronis/go-appkit/httpserver"
	"github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/log"
	"github.com/go-chi/chi/v5"
)

// ErrDomain identifica os erros HTTP do gateway (recovery, body limit).
const ErrDomain = "KVGateway"

type RouterOptions struct {
	RPC    http.Handler
	Logger log.FieldLogger

	Health        map[string]HealthCheck
	HealthTimeout time.Duration

	Concurrency ConcurrencyOptions
	// MaxBodyBytes limita o corpo do POST /. 0 desliga.
	MaxBodyBytes uint64

	// HTTPMetrics e Metrics são opcionais.
	HTTPMetrics *middleware.HTTPRequestPrometheusMetrics
	Metrics     http.Handler
}

// NewRouter monta as rotas do gateway:
//
//	POST /         JSON-RPC
//	GET  /healthz  checagens de saúde
//	GET  /metrics  prometheus
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(ErrDomain),
	)
	if opts.HTTPMetrics != nil {
		r.Use(middleware.HTTPRequestMetricsWithOpts(opts.HTTPMetrics, httpserver.GetChiRoutePattern, middleware.HTTPRequestMetricsOpts{
			ExcludedEndpoints: []string{"/metrics", "/healthz"},
		}))
	}

	r.Method(http.MethodGet, "/healthz", HealthHandler(opts.Health, opts.HealthTimeout, logger))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	rpc := r.With(ConcurrencyMiddleware(opts.Concurrency))
	if opts.MaxBodyBytes > 0 {
		rpc = rpc.With(middleware.RequestBodyLimit(opts.MaxBodyBytes, ErrDomain))
	}
	rpc.Method(http.MethodPost, "/", opts.RPC)

	return r
}
