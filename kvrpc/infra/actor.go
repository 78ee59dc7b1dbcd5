package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/service"
	"go.uber.org/atomic"

	"kv-gateway/kvrpc/domain"
)

const (
	defaultQueueSize      = 128
	defaultCommandTimeout = 2 * time.Second
)

// ActorOptions configura a fila e o executor de um ator.
type ActorOptions struct {
	// QueueSize é a capacidade da fila de comandos. Padrão: 128.
	QueueSize int

	// SubmitTimeout controla o comportamento com a fila cheia:
	//   - 0: Submit bloqueia até haver espaço (ou até o ctx encerrar);
	//   - > 0: espera no máximo esse tempo e retorna ErrQueueFull;
	//   - < 0: fail-fast, retorna ErrQueueFull imediatamente.
	SubmitTimeout time.Duration

	// CommandTimeout limita cada chamada ao backend. Padrão: 2s.
	CommandTimeout time.Duration

	Metrics MetricsCollector
	Logger  log.FieldLogger
}

func (o ActorOptions) withDefaults() ActorOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = defaultCommandTimeout
	}
	if o.Metrics == nil {
		o.Metrics = disabledMetricsCollector
	}
	if o.Logger == nil {
		o.Logger = log.NewDisabledLogger()
	}
	return o
}

// commandHandler executa um comando contra o backend, escreve no reply slot
// e devolve o outcome usado nas métricas.
type commandHandler[C domain.Command] func(ctx context.Context, cmd C) (outcome string)

// Actor é o dono exclusivo de um cliente de backend.
//
// Uma única goroutine (Start) consome a fila e executa um comando por vez,
// na ordem de chegada. Não há mutex em volta do backend: o acesso é
// serializado pela própria fila.
//
// Implementa service.Unit.
type Actor[C domain.Command] struct {
	name    string
	queue   chan C
	handle  commandHandler[C]
	onExit  func() error
	opts    ActorOptions
	logger  log.FieldLogger
	metrics MetricsCollector

	started     atomic.Bool
	stopped     atomic.Bool
	drainOnStop atomic.Bool
	stopOnce    sync.Once
	stop        chan struct{}
	done        chan struct{}
}

var _ service.Unit = (*Actor[domain.CheckLimitCommand])(nil)

func newActor[C domain.Command](name string, handle commandHandler[C], onExit func() error, opts ActorOptions) *Actor[C] {
	opts = opts.withDefaults()
	return &Actor[C]{
		name:    name,
		queue:   make(chan C, opts.QueueSize),
		handle:  handle,
		onExit:  onExit,
		opts:    opts,
		logger:  opts.Logger.With(log.String("actor", name)),
		metrics: opts.Metrics,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (a *Actor[C]) Name() string { return a.name }

// Done é fechado quando o loop do ator termina.
func (a *Actor[C]) Done() <-chan struct{} { return a.done }

// Running informa se o loop está consumindo a fila.
func (a *Actor[C]) Running() bool {
	if !a.started.Load() {
		return false
	}
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Submit enfileira um comando.
//
// Retorna domain.ErrQueueClosed se o ator já parou, domain.ErrQueueFull se a
// fila estiver cheia além do permitido por SubmitTimeout, ou ctx.Err().
func (a *Actor[C]) Submit(ctx context.Context, cmd C) error {
	if a.stopped.Load() {
		return domain.ErrQueueClosed
	}

	select {
	case a.queue <- cmd:
		a.metrics.SetQueueLength(a.name, len(a.queue))
		return nil
	default:
	}

	if a.opts.SubmitTimeout < 0 {
		return domain.ErrQueueFull
	}

	var timeout <-chan time.Time
	if a.opts.SubmitTimeout > 0 {
		t := time.NewTimer(a.opts.SubmitTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case a.queue <- cmd:
		a.metrics.SetQueueLength(a.name, len(a.queue))
		return nil
	case <-a.stop:
		return domain.ErrQueueClosed
	case <-a.done:
		return domain.ErrQueueClosed
	case <-timeout:
		return domain.ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start roda o loop do ator de forma bloqueante. Deve ser chamado numa goroutine própria.
func (a *Actor[C]) Start(fatalError chan<- error) {
	if !a.started.CompareAndSwap(false, true) {
		// Stop antes de Start não é erro
		if a.stopped.Load() {
			return
		}
		fatalError <- fmt.Errorf("actor %s: already started", a.name)
		return
	}
	defer a.exit()

	a.logger.Info("actor started", log.Int("queue_size", cap(a.queue)))
	for {
		select {
		case cmd := <-a.queue:
			a.execute(cmd)
		case <-a.stop:
			if a.drainOnStop.Load() {
				a.drain()
			}
			return
		}
	}
}

// Stop para o ator. Com gracefully=true os comandos já enfileirados são
// executados antes da saída e Stop espera o loop terminar; caso contrário
// quem aguarda resposta recebe domain.ErrActorTerminated.
func (a *Actor[C]) Stop(gracefully bool) error {
	a.stopOnce.Do(func() {
		a.drainOnStop.Store(gracefully)
		a.stopped.Store(true)
		close(a.stop)
	})

	// nunca iniciado: fecha done aqui para ninguém ficar esperando
	if a.started.CompareAndSwap(false, true) {
		close(a.done)
		return a.closeBackend()
	}

	if gracefully {
		<-a.done
	}
	return nil
}

func (a *Actor[C]) exit() {
	close(a.done)
	if err := a.closeBackend(); err != nil {
		a.logger.Error("failed to close backend", log.Error(err))
	}
	a.metrics.SetQueueLength(a.name, 0)
	a.logger.Info("actor stopped")
}

func (a *Actor[C]) closeBackend() error {
	if a.onExit == nil {
		return nil
	}
	return a.onExit()
}

func (a *Actor[C]) drain() {
	for {
		select {
		case cmd := <-a.queue:
			a.execute(cmd)
		default:
			return
		}
	}
}

func (a *Actor[C]) execute(cmd C) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.CommandTimeout)
	defer cancel()

	start := time.Now()
	outcome := a.handle(ctx, cmd)
	a.metrics.ObserveCommand(a.name, domain.CommandName(domain.Command(cmd)), outcome, time.Since(start))
	a.metrics.SetQueueLength(a.name, len(a.queue))
}
