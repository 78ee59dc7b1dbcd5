package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kv-gateway/kvrpc/domain"
)

type fakeLimiter struct {
	limited bool
	err     error
	calls   int
}

func (f *fakeLimiter) LimitReached(context.Context, string) (bool, error) {
	f.calls++
	return f.limited, f.err
}

type fakeStorage struct {
	data  map[string]string
	err   error
	calls int
}

func newFakeStorage() *fakeStorage { return &fakeStorage{data: map[string]string{}} }

func (s *fakeStorage) Get(_ context.Context, key string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (s *fakeStorage) Set(_ context.Context, key, value string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

type recordingStats struct {
	events []domain.StatsEvent
}

func (r *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func TestDispatcher_SetThenGet(t *testing.T) {
	storage := newFakeStorage()
	d := Dispatcher{Limiter: &fakeLimiter{}, Storage: storage}
	ctx := context.Background()

	res, err := d.Dispatch(ctx, domain.Request{Method: "set", Params: []string{"user1", "Alice"}}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "value inserted", res)

	res, err = d.Dispatch(ctx, domain.Request{Method: "get", Params: []string{"user1"}}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", res)
}

func TestDispatcher_RejectsBeforeTouchingActors(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.Request
		wantErr error
	}{
		{"unknown method", domain.Request{Method: "del", Params: []string{"k"}}, domain.ErrMethodNotFound},
		{"get without params", domain.Request{Method: "get"}, domain.ErrInvalidParams},
		{"get with two params", domain.Request{Method: "get", Params: []string{"a", "b"}}, domain.ErrInvalidParams},
		{"set with one param", domain.Request{Method: "set", Params: []string{"a"}}, domain.ErrInvalidParams},
		{"set with three params", domain.Request{Method: "set", Params: []string{"a", "b", "c"}}, domain.ErrInvalidParams},
		{"get with empty key", domain.Request{Method: "get", Params: []string{""}}, domain.ErrEmptyKey},
		{"set with empty key", domain.Request{Method: "set", Params: []string{"", "v"}}, domain.ErrEmptyKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := &fakeLimiter{}
			storage := newFakeStorage()
			d := Dispatcher{Limiter: limiter, Storage: storage}

			_, err := d.Dispatch(context.Background(), tt.req, "c")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsClientError(err))
			assert.Zero(t, limiter.calls)
			assert.Zero(t, storage.calls)
		})
	}
}

func TestDispatcher_RateLimitedSkipsStorage(t *testing.T) {
	storage := newFakeStorage()
	d := Dispatcher{Limiter: &fakeLimiter{limited: true}, Storage: storage}

	_, err := d.Dispatch(context.Background(), domain.Request{Method: "get", Params: []string{"k"}}, "c")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Zero(t, storage.calls)
}

func TestDispatcher_LimiterFailureFailsClosed(t *testing.T) {
	storage := newFakeStorage()
	d := Dispatcher{Limiter: &fakeLimiter{limited: true, err: domain.ErrQueueFull}, Storage: storage}

	_, err := d.Dispatch(context.Background(), domain.Request{Method: "set", Params: []string{"k", "v"}}, "c")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorIs(t, err, domain.ErrQueueFull)
	assert.Zero(t, storage.calls)
}

func TestDispatcher_LimiterErrorWithoutDecisionStillFailsClosed(t *testing.T) {
	d := Dispatcher{Limiter: &fakeLimiter{limited: false, err: errors.New("boom")}, Storage: newFakeStorage()}

	_, err := d.Dispatch(context.Background(), domain.Request{Method: "get", Params: []string{"k"}}, "c")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestDispatcher_NoLimiterFailsClosed(t *testing.T) {
	d := Dispatcher{Storage: newFakeStorage()}

	_, err := d.Dispatch(context.Background(), domain.Request{Method: "get", Params: []string{"k"}}, "c")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestDispatcher_PropagatesStorageErrors(t *testing.T) {
	d := Dispatcher{Limiter: &fakeLimiter{}, Storage: newFakeStorage()}
	_, err := d.Dispatch(context.Background(), domain.Request{Method: "get", Params: []string{"missing"}}, "c")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	broken := newFakeStorage()
	broken.err = domain.ErrBackend
	d = Dispatcher{Limiter: &fakeLimiter{}, Storage: broken}
	res, err := d.Dispatch(context.Background(), domain.Request{Method: "set", Params: []string{"k", "v"}}, "c")
	assert.ErrorIs(t, err, domain.ErrBackend)
	assert.Empty(t, res)
}

func TestDispatcher_RecordsStats(t *testing.T) {
	stats := &recordingStats{}
	limiter := &fakeLimiter{}
	d := Dispatcher{Limiter: limiter, Storage: newFakeStorage(), Stats: stats}
	ctx := context.Background()

	_, _ = d.Dispatch(ctx, domain.Request{Method: "set", Params: []string{"k", "v"}}, "10.0.0.1")
	limiter.limited = true
	_, _ = d.Dispatch(ctx, domain.Request{Method: "get", Params: []string{"k"}}, "10.0.0.1")
	_, _ = d.Dispatch(ctx, domain.Request{Method: "del"}, "10.0.0.1")

	require.Len(t, stats.events, 2)
	assert.True(t, stats.events[0].Allowed)
	assert.Equal(t, "set", stats.events[0].Method)
	assert.False(t, stats.events[1].Allowed)
	assert.Equal(t, "10.0.0.1", stats.events[1].Identity)
	assert.False(t, stats.events[1].At.IsZero())
}
