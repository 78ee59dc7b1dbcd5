package infra

import (
	"context"
	"sync"

	"kv-gateway/kvrpc/domain"
)

// InFlightPool é um semáforo sobre channel que publica a ocupação no
// MetricsCollector a cada aquisição e liberação.
type InFlightPool struct {
	name    string
	slots   chan struct{}
	metrics MetricsCollector
}

var _ domain.InFlightPool = (*InFlightPool)(nil)

// NewInFlightPool cria um pool com capacidade size. metrics pode ser nil.
func NewInFlightPool(name string, size int, metrics MetricsCollector) *InFlightPool {
	if metrics == nil {
		metrics = disabledMetricsCollector
	}
	return &InFlightPool{name: name, slots: make(chan struct{}, size), metrics: metrics}
}

func (p *InFlightPool) Acquire(ctx context.Context) (func(), error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.metrics.SetInFlight(p.name, len(p.slots))

	var once sync.Once
	return func() {
		once.Do(func() {
			<-p.slots
			p.metrics.SetInFlight(p.name, len(p.slots))
		})
	}, nil
}

func (p *InFlightPool) InFlight() int { return len(p.slots) }

func (p *InFlightPool) Capacity() int { return cap(p.slots) }
