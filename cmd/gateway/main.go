package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/acronis/go-appkit/httpserver/middleware"
	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/retry"
	"github.com/acronis/go-appkit/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"kv-gateway/kvrpc"
	"kv-gateway/kvrpc/application"
	"kv-gateway/kvrpc/domain"
	"kv-gateway/kvrpc/infra"
)

const metricsNamespace = "kvgateway"

func main() {
	configPath := flag.String("config", "", "path to YAML/JSON config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "kv-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Redis.PoolSize > 0 {
		redisOpts.PoolSize = cfg.Redis.PoolSize
	}
	redisOpts.DialTimeout = cfg.Redis.DialTimeout
	newRedisClient := func(name string) *redis.Client {
		opts := *redisOpts
		opts.ClientName = metricsNamespace + "-" + name
		return redis.NewClient(&opts)
	}

	// cliente administrativo: health check e estatísticas. Cada ator tem o seu.
	admin := newRedisClient("admin")
	defer func() { _ = admin.Close() }()

	if err := waitForRedis(admin, cfg.Redis.ConnectAttempts, logger); err != nil {
		return err
	}

	actorMetrics := infra.NewPrometheusMetricsWithOpts(infra.PrometheusMetricsOpts{Namespace: metricsNamespace})
	httpMetrics := middleware.NewHTTPRequestPrometheusMetricsWithOpts(middleware.HTTPRequestPrometheusMetricsOpts{
		Namespace: metricsNamespace,
	})
	actorOpts := cfg.Actors.ActorOptions(actorMetrics, logger)

	storage := infra.NewStorageActor(infra.NewRedisBackend(newRedisClient("storage")), cfg.Storage.StorageOptions(), actorOpts)
	limiter, err := infra.NewLimiterActor(infra.NewRedisBackend(newRedisClient("limiter")), cfg.RateLimit.LimiterOptions(), actorOpts)
	if err != nil {
		return err
	}

	rpc := kvrpc.NewHandler(kvrpc.HandlerOptions{
		Dispatcher: application.Dispatcher{
			Limiter: limiter,
			Storage: storage,
			Stats:   newStatsStore(cfg.Stats, admin),
			Logger:  logger,
		},
		KeyHeader:          cfg.Server.KeyHeader,
		TrustXForwardedFor: cfg.Server.TrustXForwardedFor,
		RetryAfter:         cfg.RateLimit.Window,
		Logger:             logger,
	})

	router := kvrpc.NewRouter(kvrpc.RouterOptions{
		RPC:    rpc,
		Logger: logger,
		Health: map[string]kvrpc.HealthCheck{
			"redis":   func(ctx context.Context) error { return admin.Ping(ctx).Err() },
			"storage": actorCheck(storage.Actor),
			"limiter": actorCheck(limiter.Actor),
		},
		Concurrency: kvrpc.ConcurrencyOptions{
			Max:            cfg.Server.ConcurrencyMax,
			AcquireTimeout: cfg.Server.ConcurrencyTimeout,
			RetryAfter:     time.Second,
			Metrics:        actorMetrics,
		},
		MaxBodyBytes: cfg.Server.MaxBodySize,
		HTTPMetrics:  httpMetrics,
		Metrics:      promhttp.Handler(),
	})

	server := kvrpc.NewServer(cfg.Server.ServerOptions(actorMetrics, httpMetrics), router, logger)

	logger.Info("kv-gateway configured",
		log.String("address", cfg.Server.Address),
		log.Uint64("rate_limit", cfg.RateLimit.Limit),
		log.Duration("rate_window", cfg.RateLimit.Window),
		log.Int("queue_size", cfg.Actors.QueueSize),
		log.Bool("stats", cfg.Stats.Enabled),
	)

	return service.New(logger, kvrpc.NewGatewayUnit(server, storage, limiter)).Start()
}

func waitForRedis(rdb redis.UniversalClient, attempts int, logger log.FieldLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if attempts <= 1 {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unavailable: %w", err)
		}
		return nil
	}

	policy := retry.NewExponentialBackoffPolicy(200*time.Millisecond, attempts-1)
	notify := func(err error, next time.Duration) {
		logger.Warn("redis not ready, retrying", log.Error(err), log.Duration("next_attempt_in", next))
	}
	err := retry.DoWithRetry(ctx, policy, nil, notify, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("redis unavailable: %w", err)
	}
	return nil
}

func newStatsStore(cfg *StatsConfig, rdb redis.UniversalClient) domain.StatsStore {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Backend == statsBackendMemory {
		return infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.TrackKeys))
	}
	return infra.NewRedisStatsStore(
		rdb,
		infra.WithStatsPrefix(cfg.Prefix),
		infra.WithStatsTTL(cfg.TTL),
		infra.WithStatsBucket(cfg.Bucket),
		infra.WithStatsTrackKeys(cfg.TrackKeys),
	)
}

type runningActor interface {
	Name() string
	Running() bool
}

func actorCheck(a runningActor) kvrpc.HealthCheck {
	return func(context.Context) error {
		if !a.Running() {
			return fmt.Errorf("actor %s is not running", a.Name())
		}
		return nil
	}
}
