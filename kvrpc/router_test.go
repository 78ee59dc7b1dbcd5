package kvrpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acronis/go-appkit/log/logtest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kv-gateway/kvrpc/application"
)

func TestRouter_Healthz(t *testing.T) {
	healthy := true
	logger := logtest.NewRecorder()
	router := NewRouter(RouterOptions{
		Logger: logger,
		RPC:    http.NotFoundHandler(),
		Health: map[string]HealthCheck{
			"redis": func(context.Context) error {
				if !healthy {
					return errors.New("connection refused")
				}
				return nil
			},
			"limiter": func(context.Context) error { return nil },
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"components":{"redis":true,"limiter":true}}`, w.Body.String())

	healthy = false
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"components":{"redis":false,"limiter":true}}`, w.Body.String())

	entry, found := logger.FindEntry("health check failed")
	require.True(t, found)
	field, ok := entry.FindField("component")
	require.True(t, ok)
	assert.Equal(t, "redis", string(field.Bytes))
}

func TestRouter_HealthzCheckTimeout(t *testing.T) {
	router := NewRouter(RouterOptions{
		RPC:           http.NotFoundHandler(),
		HealthTimeout: 10 * time.Millisecond,
		Health: map[string]HealthCheck{
			"redis": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"components":{"redis":false}}`, w.Body.String())
}

func TestRouter_RPCAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rpc := NewHandler(HandlerOptions{Dispatcher: application.Dispatcher{Limiter: allowLimiter{}, Storage: newMapStorage()}})
	router := NewRouter(RouterOptions{
		RPC:          rpc,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MaxBodyBytes: 1 << 20,
	})

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","method":"set","id":1,"params":["k","v"]}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":"value inserted","id":1}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type mapStorage struct {
	data map[string]string
}

func newMapStorage() *mapStorage { return &mapStorage{data: map[string]string{}} }

func (s *mapStorage) Get(_ context.Context, key string) (string, error) { return s.data[key], nil }
func (s *mapStorage) Set(_ context.Context, key, value string) error {
	s.data[key] = value
	return nil
}
