package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/restapi"
	"github.com/acronis/go-appkit/service"

	"kv-gateway/kvrpc"
	"kv-gateway/kvrpc/application"
	"kv-gateway/kvrpc/infra"
)

// devserver roda o gateway inteiro sobre o backend em memória (sem Redis).
// O estado é perdido ao reiniciar.
func main() {
	addr := flag.String("addr", ":8081", "listen address")
	limit := flag.Uint64("limit", 5, "requests allowed per window and client")
	window := flag.Duration("window", time.Second, "rate limit window")
	keyHeader := flag.String("key-header", "", "header carrying the client identity (empty: use IP)")
	flag.Parse()

	logger, closeLogger := log.NewLogger(&log.Config{Output: log.OutputStdout, Format: log.FormatText, Level: log.LevelDebug})
	defer closeLogger()

	if err := run(*addr, *limit, *window, *keyHeader, logger); err != nil {
		logger.Error("devserver failed", log.Error(err))
		closeLogger()
		os.Exit(1)
	}
}

func run(addr string, limit uint64, window time.Duration, keyHeader string, logger log.FieldLogger) error {
	actorOpts := infra.ActorOptions{Logger: logger}
	// um único backend, como o banco Redis compartilhado em produção
	backend := infra.NewMemoryBackend()
	storage := infra.NewStorageActor(backend, infra.StorageOptions{}, actorOpts)
	limiter, err := infra.NewLimiterActor(backend, infra.LimiterOptions{Limit: limit, Window: window}, actorOpts)
	if err != nil {
		return err
	}
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	rpc := kvrpc.NewHandler(kvrpc.HandlerOptions{
		Dispatcher: application.Dispatcher{Limiter: limiter, Storage: storage, Stats: stats, Logger: logger},
		KeyHeader:  keyHeader,
		RetryAfter: window,
		Logger:     logger,
	})
	router := kvrpc.NewRouter(kvrpc.RouterOptions{
		RPC:    rpc,
		Logger: logger,
		Health: map[string]kvrpc.HealthCheck{
			"storage": func(context.Context) error { return running(storage.Running(), "storage") },
			"limiter": func(context.Context) error { return running(limiter.Running(), "limiter") },
		},
		Concurrency: kvrpc.ConcurrencyOptions{Max: 50},
	})

	mux := http.NewServeMux()
	mux.Handle("/", router)
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		restapi.RespondJSON(w, map[string]interface{}{
			"total":    stats.Total(),
			"byMethod": stats.ByMethod(),
			"byKey":    stats.ByKey(),
		}, logger)
	})

	server := kvrpc.NewServer(kvrpc.ServerOptions{Address: addr, ShutdownTimeout: 5 * time.Second}, mux, logger)
	logger.Info(fmt.Sprintf("devserver: limit=%d window=%s (in-memory backend)", limit, window))
	return service.New(logger, kvrpc.NewGatewayUnit(server, storage, limiter)).Start()
}

func running(ok bool, name string) error {
	if !ok {
		return fmt.Errorf("actor %s is not running", name)
	}
	return nil
}
