package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/log/logtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kv-gateway/kvrpc/domain"
)

// failingBackend simula um backend fora do ar.
type failingBackend struct {
	*MemoryBackend
	err error
}

func (b failingBackend) IncrementWindow(context.Context, string, time.Duration, uint64) (uint64, error) {
	return 0, b.err
}

func newTestLimiter(t *testing.T, backend domain.Backend, limit LimiterOptions, logger log.FieldLogger) *LimiterActor {
	t.Helper()
	l, err := NewLimiterActor(backend, limit, ActorOptions{Logger: logger})
	require.NoError(t, err)
	startActor(t, l.Actor)
	return l
}

func TestNewLimiterActor_ValidatesLimit(t *testing.T) {
	_, err := NewLimiterActor(NewMemoryBackend(), LimiterOptions{Limit: 0}, ActorOptions{})
	assert.Error(t, err)

	_, err = NewLimiterActor(NewMemoryBackend(), LimiterOptions{Limit: 10, CounterMax: 10}, ActorOptions{})
	assert.Error(t, err)
}

func TestLimiterActor_AllowsUpToLimitPerWindow(t *testing.T) {
	clock := newFakeClock()
	backend := NewMemoryBackend(WithClock(clock.Now))
	l := newTestLimiter(t, backend, LimiterOptions{Limit: 2, Window: time.Second}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		over, err := l.LimitReached(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, over, "request %d", i+1)
	}
	over, err := l.LimitReached(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, over)

	// outra identidade tem orçamento próprio
	over, err = l.LimitReached(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, over)

	clock.Advance(time.Second)
	over, err = l.LimitReached(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, over)
}

func TestLimiterActor_UsesPrefixedKey(t *testing.T) {
	backend := NewMemoryBackend()
	l := newTestLimiter(t, backend, LimiterOptions{Limit: 5, KeyPrefix: "rl:"}, nil)

	_, err := l.LimitReached(context.Background(), "client")
	require.NoError(t, err)

	v, err := backend.Get(context.Background(), "rl:client")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, "rl:client", l.Key("client"))
}

func TestLimiterActor_DefaultOptions(t *testing.T) {
	l, err := NewLimiterActor(NewMemoryBackend(), LimiterOptions{Limit: 1}, ActorOptions{})
	require.NoError(t, err)
	defer func() { _ = l.Stop(false) }()

	opts := l.Options()
	assert.Equal(t, DefaultLimitWindow, opts.Window)
	assert.Equal(t, DefaultLimitKeyPrefix, opts.KeyPrefix)
	assert.Equal(t, DefaultCounterMax, opts.CounterMax)
}

func TestLimiterActor_CounterSaturatesAndStaysLimited(t *testing.T) {
	backend := NewMemoryBackend()
	l := newTestLimiter(t, backend, LimiterOptions{Limit: 2, CounterMax: 3, Window: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := l.LimitReached(ctx, "c")
		require.NoError(t, err)
	}
	over, err := l.LimitReached(ctx, "c")
	require.NoError(t, err)
	assert.True(t, over)

	v, err := backend.Get(ctx, DefaultLimitKeyPrefix+"c")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestLimiterActor_FailsClosedOnBackendError(t *testing.T) {
	logger := logtest.NewRecorder()
	backend := failingBackend{MemoryBackend: NewMemoryBackend(), err: errors.New("connection refused")}
	l := newTestLimiter(t, backend, LimiterOptions{Limit: 100}, logger)

	over, err := l.LimitReached(context.Background(), "c")
	assert.True(t, over)
	assert.ErrorIs(t, err, domain.ErrBackend)

	_, found := logger.FindEntry("rate limiter backend unavailable, failing closed")
	assert.True(t, found)
}

func TestLimiterActor_FailsClosedWhenStopped(t *testing.T) {
	l, err := NewLimiterActor(NewMemoryBackend(), LimiterOptions{Limit: 100}, ActorOptions{})
	require.NoError(t, err)
	require.NoError(t, l.Stop(true))

	over, err := l.LimitReached(context.Background(), "c")
	assert.True(t, over)
	assert.ErrorIs(t, err, domain.ErrQueueClosed)
}
