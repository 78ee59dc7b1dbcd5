package kvrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/service"
)

// MetricsCollector é um conjunto de métricas que sabe se registrar no Prometheus.
type MetricsCollector interface {
	MustRegister()
	Unregister()
}

type ServerOptions struct {
	Address           string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	// Metrics são registradas quando o service.Service sobe.
	Metrics []MetricsCollector
}

// Server é o servidor HTTP do gateway como service.Unit.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	metrics         []MetricsCollector
	logger          log.FieldLogger
}

var (
	_ service.Unit              = (*Server)(nil)
	_ service.MetricsRegisterer = (*Server)(nil)
)

func NewServer(opts ServerOptions, handler http.Handler, logger log.FieldLogger) *Server {
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Server{
		srv: &http.Server{
			Addr:              opts.Address,
			Handler:           handler,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			ReadTimeout:       opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
		},
		shutdownTimeout: opts.ShutdownTimeout,
		metrics:         opts.Metrics,
		logger:          logger,
	}
}

func (s *Server) Start(fatalError chan<- error) {
	s.logger.Info("starting HTTP server", log.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatalError <- fmt.Errorf("http server: %w", err)
	}
}

func (s *Server) Stop(gracefully bool) error {
	if !gracefully {
		return s.srv.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) MustRegisterMetrics() {
	for _, m := range s.metrics {
		m.MustRegister()
	}
}

func (s *Server) UnregisterMetrics() {
	for _, m := range s.metrics {
		m.Unregister()
	}
}

// GatewayUnit sobe servidor e atores juntos, mas para o servidor primeiro:
// requisições em voo ainda encontram os atores rodando.
type GatewayUnit struct {
	*service.CompositeUnit
	server service.Unit
	actors *service.CompositeUnit
}

func NewGatewayUnit(server service.Unit, actors ...service.Unit) *GatewayUnit {
	actorUnit := service.NewCompositeUnit(actors...)
	return &GatewayUnit{
		CompositeUnit: service.NewCompositeUnit(server, actorUnit),
		server:        server,
		actors:        actorUnit,
	}
}

func (u *GatewayUnit) Stop(gracefully bool) error {
	var errs []error
	if err := u.server.Stop(gracefully); err != nil {
		errs = append(errs, err)
	}
	if err := u.actors.Stop(gracefully); err != nil {
		errs = append(errs, err)
	}
	if len(errs) != 0 {
		return &service.CompositeUnitError{UnitErrors: errs}
	}
	return nil
}
