package kvrpc

import (
	"errors"
	"net/http"
	"time"

	"github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/restapi"

	"kv-gateway/kvrpc/application"
	"kv-gateway/kvrpc/domain"
)

type HandlerOptions struct {
	Dispatcher application.Dispatcher

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	// RetryAfter vai no header Retry-After das respostas rate limited
	// (normalmente a duração da janela). 0 omite o header.
	RetryAfter time.Duration

	Logger log.FieldLogger
}

// Handler atende POST / com um único request JSON-RPC.
type Handler struct {
	dispatcher application.Dispatcher
	keyFn      KeyFunc
	retryAfter time.Duration
	logger     log.FieldLogger
}

func NewHandler(opts HandlerOptions) *Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Handler{
		dispatcher: opts.Dispatcher,
		keyFn:      opts.KeyFn,
		retryAfter: opts.RetryAfter,
		logger:     opts.Logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	var env requestEnvelope
	if err := restapi.DecodeRequestJSON(r, &env); err != nil {
		logger.Debug("malformed json-rpc request", log.Error(err))
		restapi.RespondJSON(w, errorResponse(nil, errParse), logger)
		return
	}
	if env.Method == "" {
		restapi.RespondJSON(w, errorResponse(env.ID, errInvalidRequest), logger)
		return
	}
	params, ok := stringParams(env.Params)
	if !ok {
		restapi.RespondJSON(w, errorResponse(env.ID, errParamsNotText), logger)
		return
	}

	identity := h.keyFn(r)
	req := domain.Request{Method: env.Method, ID: string(env.ID), Params: params}

	result, err := h.dispatcher.Dispatch(r.Context(), req, identity)
	if err != nil {
		h.logFailure(logger, req, identity, err)
		if errors.Is(err, domain.ErrRateLimited) && h.retryAfter > 0 {
			w.Header().Set("Retry-After", formatSeconds(h.retryAfter))
		}
		restapi.RespondJSON(w, errorResponse(env.ID, toRPCError(err)), logger)
		return
	}
	restapi.RespondJSON(w, resultResponse(env.ID, result), logger)
}

func (h *Handler) logFailure(logger log.FieldLogger, req domain.Request, identity string, err error) {
	fields := []log.Field{
		log.String("rpc_method", req.Method),
		log.String("rpc_id", req.ID),
		log.String("identity", identity),
		log.Error(err),
	}
	switch {
	case domain.IsClientError(err), errors.Is(err, domain.ErrNotFound):
		logger.Debug("rpc call rejected", fields...)
	case errors.Is(err, domain.ErrRateLimited):
		logger.Info("rpc call rate limited", fields...)
	default:
		logger.Error("rpc call failed", fields...)
	}
}

func (h *Handler) requestLogger(r *http.Request) log.FieldLogger {
	if l := middleware.GetLoggerFromContext(r.Context()); l != nil {
		return l
	}
	return h.logger
}
