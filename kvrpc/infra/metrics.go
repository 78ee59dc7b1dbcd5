package infra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes usados como label em commands_total.
const (
	outcomeOK         = "ok"
	outcomeNotFound   = "not_found"
	outcomeError      = "error"
	outcomeAllowed    = "allowed"
	outcomeLimited    = "limited"
	outcomeFailClosed = "fail_closed"
)

// MetricsCollector coleta métricas dos atores.
type MetricsCollector interface {
	// SetQueueLength registra quantos comandos aguardam na fila do ator.
	SetQueueLength(actor string, n int)

	// ObserveCommand registra a execução de um comando.
	ObserveCommand(actor, command, outcome string, d time.Duration)

	// SetInFlight registra quantas chamadas ocupam o InFlightPool.
	SetInFlight(pool string, n int)
}

type PrometheusMetricsOpts struct {
	Namespace       string
	DurationBuckets []float64
	ConstLabels     prometheus.Labels
}

type PrometheusMetrics struct {
	QueueLength     *prometheus.GaugeVec
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	InFlight        *prometheus.GaugeVec
}

func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	}

	queueLength := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "actor_queue_length",
			Help:        "Number of commands waiting in the actor queue.",
			ConstLabels: opts.ConstLabels,
		},
		[]string{"actor"},
	)

	commandsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "actor_commands_total",
			Help:        "Number of commands executed by the actor.",
			ConstLabels: opts.ConstLabels,
		},
		[]string{"actor", "command", "outcome"},
	)

	commandDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "actor_command_duration_seconds",
			Help:        "Time spent executing a command against the backend.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		},
		[]string{"actor", "command"},
	)

	inFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "in_flight_requests",
			Help:        "Number of RPC calls currently holding an in-flight slot.",
			ConstLabels: opts.ConstLabels,
		},
		[]string{"pool"},
	)

	return &PrometheusMetrics{
		QueueLength:     queueLength,
		CommandsTotal:   commandsTotal,
		CommandDuration: commandDuration,
		InFlight:        inFlight,
	}
}

// MustRegister registra as métricas no registry padrão do Prometheus.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.QueueLength, pm.CommandsTotal, pm.CommandDuration, pm.InFlight)
}

func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueueLength)
	prometheus.Unregister(pm.CommandsTotal)
	prometheus.Unregister(pm.CommandDuration)
	prometheus.Unregister(pm.InFlight)
}

func (pm *PrometheusMetrics) SetQueueLength(actor string, n int) {
	pm.QueueLength.WithLabelValues(actor).Set(float64(n))
}

func (pm *PrometheusMetrics) ObserveCommand(actor, command, outcome string, d time.Duration) {
	pm.CommandsTotal.WithLabelValues(actor, command, outcome).Inc()
	pm.CommandDuration.WithLabelValues(actor, command).Observe(d.Seconds())
}

func (pm *PrometheusMetrics) SetInFlight(pool string, n int) {
	pm.InFlight.WithLabelValues(pool).Set(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) SetQueueLength(string, int)                           {}
func (disabledMetrics) ObserveCommand(string, string, string, time.Duration) {}
func (disabledMetrics) SetInFlight(string, int)                              {}

var disabledMetricsCollector = disabledMetrics{}
