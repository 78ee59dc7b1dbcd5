package main

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/log"

	"kv-gateway/kvrpc"
	"kv-gateway/kvrpc/infra"
)

const envVarsPrefix = "KVGATEWAY"

// maxSafeCounter é o maior inteiro que o Lua do Redis representa sem perda.
const maxSafeCounter = 1 << 53

const (
	cfgKeyServerAddress           = "address"
	cfgKeyServerReadHeaderTimeout = "timeouts.readHeader"
	cfgKeyServerReadTimeout       = "timeouts.read"
	cfgKeyServerWriteTimeout      = "timeouts.write"
	cfgKeyServerIdleTimeout       = "timeouts.idle"
	cfgKeyServerShutdownTimeout   = "timeouts.shutdown"
	cfgKeyServerKeyHeader         = "keyHeader"
	cfgKeyServerTrustXFF          = "trustXForwardedFor"
	cfgKeyServerMaxBodySize       = "maxBodySize"
	cfgKeyServerConcurrencyMax    = "concurrency.max"
	cfgKeyServerConcurrencyWait   = "concurrency.acquireTimeout"

	cfgKeyRedisURL             = "url"
	cfgKeyRedisPoolSize        = "poolSize"
	cfgKeyRedisDialTimeout     = "dialTimeout"
	cfgKeyRedisConnectAttempts = "connectAttempts"

	cfgKeyRateLimitWindow     = "window"
	cfgKeyRateLimitLimit      = "limit"
	cfgKeyRateLimitKeyPrefix  = "keyPrefix"
	cfgKeyRateLimitCounterMax = "counterMax"

	cfgKeyStorageKeyPrefix = "keyPrefix"

	cfgKeyActorsQueueSize      = "queueSize"
	cfgKeyActorsSubmitTimeout  = "submitTimeout"
	cfgKeyActorsFailFast       = "failFast"
	cfgKeyActorsCommandTimeout = "commandTimeout"

	cfgKeyStatsEnabled   = "enabled"
	cfgKeyStatsBackend   = "backend"
	cfgKeyStatsPrefix    = "prefix"
	cfgKeyStatsTTL       = "ttl"
	cfgKeyStatsBucket    = "bucket"
	cfgKeyStatsTrackKeys = "trackKeys"
)

// Config agrega todas as seções de configuração do gateway.
type Config struct {
	Log       *log.Config
	Server    *ServerConfig
	Redis     *RedisConfig
	Storage   *StorageConfig
	RateLimit *RateLimitConfig
	Actors    *ActorsConfig
	Stats     *StatsConfig
}

func NewConfig() *Config {
	return &Config{
		Log:       log.NewConfig(),
		Server:    &ServerConfig{},
		Redis:     &RedisConfig{},
		Storage:   &StorageConfig{},
		RateLimit: &RateLimitConfig{},
		Actors:    &ActorsConfig{},
		Stats:     &StatsConfig{},
	}
}

// LoadConfig lê o arquivo (YAML ou JSON, pela extensão) e as variáveis KVGATEWAY_*.
// Sem arquivo, valem só os padrões e as variáveis de ambiente.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	cfgs := []config.Config{cfg.Server, cfg.Redis, cfg.Storage, cfg.RateLimit, cfg.Actors, cfg.Stats}

	var err error
	if path == "" {
		err = loader.LoadFromReader(bytes.NewReader(nil), config.DataTypeYAML, cfg.Log, cfgs...)
	} else {
		err = loader.LoadFromFile(path, dataTypeOf(path), cfg.Log, cfgs...)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err = cfg.validateKeyspaces(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// validateKeyspaces garante que as chaves dos clientes e os contadores do
// limiter não se sobrepõem no mesmo banco.
func (c *Config) validateKeyspaces() error {
	storage, limiter := c.Storage.StorageKeyPrefix, c.RateLimit.CounterKeyPrefix
	if strings.HasPrefix(storage, limiter) || strings.HasPrefix(limiter, storage) {
		return fmt.Errorf("storage.%s (%q) and rateLimit.%s (%q) must not overlap",
			cfgKeyStorageKeyPrefix, storage, cfgKeyRateLimitKeyPrefix, limiter)
	}
	return nil
}

func dataTypeOf(path string) config.DataType {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.DataTypeJSON
	}
	return config.DataTypeYAML
}

type ServerConfig struct {
	Address           string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	KeyHeader          string
	TrustXForwardedFor bool
	MaxBodySize        uint64

	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration
}

func (c *ServerConfig) KeyPrefix() string { return "server" }

func (c *ServerConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyServerAddress, ":8080")
	dp.SetDefault(cfgKeyServerReadHeaderTimeout, "10s")
	dp.SetDefault(cfgKeyServerReadTimeout, "30s")
	dp.SetDefault(cfgKeyServerWriteTimeout, "30s")
	dp.SetDefault(cfgKeyServerIdleTimeout, "90s")
	dp.SetDefault(cfgKeyServerShutdownTimeout, "10s")
	dp.SetDefault(cfgKeyServerKeyHeader, "")
	dp.SetDefault(cfgKeyServerTrustXFF, false)
	dp.SetDefault(cfgKeyServerMaxBodySize, "1M")
	dp.SetDefault(cfgKeyServerConcurrencyMax, 100)
	dp.SetDefault(cfgKeyServerConcurrencyWait, "0s")
}

func (c *ServerConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	if c.ReadHeaderTimeout, err = dp.GetDuration(cfgKeyServerReadHeaderTimeout); err != nil {
		return err
	}
	if c.ReadTimeout, err = dp.GetDuration(cfgKeyServerReadTimeout); err != nil {
		return err
	}
	if c.WriteTimeout, err = dp.GetDuration(cfgKeyServerWriteTimeout); err != nil {
		return err
	}
	if c.IdleTimeout, err = dp.GetDuration(cfgKeyServerIdleTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = dp.GetDuration(cfgKeyServerShutdownTimeout); err != nil {
		return err
	}
	if c.KeyHeader, err = dp.GetString(cfgKeyServerKeyHeader); err != nil {
		return err
	}
	if c.TrustXForwardedFor, err = dp.GetBool(cfgKeyServerTrustXFF); err != nil {
		return err
	}
	maxBodySize, err := dp.GetSizeInBytes(cfgKeyServerMaxBodySize)
	if err != nil {
		return err
	}
	c.MaxBodySize = uint64(maxBodySize)
	if c.ConcurrencyMax, err = dp.GetInt(cfgKeyServerConcurrencyMax); err != nil {
		return err
	}
	if c.ConcurrencyMax < 0 {
		return dp.WrapKeyErr(cfgKeyServerConcurrencyMax, errors.New("must be >= 0"))
	}
	if c.ConcurrencyTimeout, err = dp.GetDuration(cfgKeyServerConcurrencyWait); err != nil {
		return err
	}
	return nil
}

func (c *ServerConfig) ServerOptions(metrics ...kvrpc.MetricsCollector) kvrpc.ServerOptions {
	return kvrpc.ServerOptions{
		Address:           c.Address,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       c.IdleTimeout,
		ShutdownTimeout:   c.ShutdownTimeout,
		Metrics:           metrics,
	}
}

type RedisConfig struct {
	URL             string
	PoolSize        int
	DialTimeout     time.Duration
	ConnectAttempts int
}

func (c *RedisConfig) KeyPrefix() string { return "redis" }

func (c *RedisConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyRedisURL, "redis://localhost:6379/0")
	dp.SetDefault(cfgKeyRedisPoolSize, 0)
	dp.SetDefault(cfgKeyRedisDialTimeout, "5s")
	dp.SetDefault(cfgKeyRedisConnectAttempts, 5)
}

func (c *RedisConfig) Set(dp config.DataProvider) error {
	var err error
	if c.URL, err = dp.GetString(cfgKeyRedisURL); err != nil {
		return err
	}
	if c.URL == "" {
		return dp.WrapKeyErr(cfgKeyRedisURL, errors.New("must not be empty"))
	}
	if c.PoolSize, err = dp.GetInt(cfgKeyRedisPoolSize); err != nil {
		return err
	}
	if c.DialTimeout, err = dp.GetDuration(cfgKeyRedisDialTimeout); err != nil {
		return err
	}
	if c.ConnectAttempts, err = dp.GetInt(cfgKeyRedisConnectAttempts); err != nil {
		return err
	}
	if c.ConnectAttempts < 1 {
		return dp.WrapKeyErr(cfgKeyRedisConnectAttempts, errors.New("must be >= 1"))
	}
	return nil
}

type StorageConfig struct {
	StorageKeyPrefix string
}

func (c *StorageConfig) KeyPrefix() string { return "storage" }

func (c *StorageConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyStorageKeyPrefix, infra.DefaultStorageKeyPrefix)
}

func (c *StorageConfig) Set(dp config.DataProvider) error {
	var err error
	if c.StorageKeyPrefix, err = dp.GetString(cfgKeyStorageKeyPrefix); err != nil {
		return err
	}
	if c.StorageKeyPrefix == "" {
		return dp.WrapKeyErr(cfgKeyStorageKeyPrefix, errors.New("must not be empty"))
	}
	return nil
}

func (c *StorageConfig) StorageOptions() infra.StorageOptions {
	return infra.StorageOptions{KeyPrefix: c.StorageKeyPrefix}
}

type RateLimitConfig struct {
	Window           time.Duration
	Limit            uint64
	CounterKeyPrefix string
	CounterMax       uint64
}

func (c *RateLimitConfig) KeyPrefix() string { return "rateLimit" }

func (c *RateLimitConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyRateLimitWindow, "1s")
	dp.SetDefault(cfgKeyRateLimitLimit, 100)
	dp.SetDefault(cfgKeyRateLimitKeyPrefix, infra.DefaultLimitKeyPrefix)
	dp.SetDefault(cfgKeyRateLimitCounterMax, int64(math.MaxUint32))
}

func (c *RateLimitConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Window, err = dp.GetDuration(cfgKeyRateLimitWindow); err != nil {
		return err
	}
	if c.Window < time.Millisecond {
		return dp.WrapKeyErr(cfgKeyRateLimitWindow, errors.New("must be >= 1ms"))
	}

	limit, err := dp.GetInt(cfgKeyRateLimitLimit)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return dp.WrapKeyErr(cfgKeyRateLimitLimit, errors.New("must be > 0"))
	}
	c.Limit = uint64(limit)

	if c.CounterKeyPrefix, err = dp.GetString(cfgKeyRateLimitKeyPrefix); err != nil {
		return err
	}
	if c.CounterKeyPrefix == "" {
		return dp.WrapKeyErr(cfgKeyRateLimitKeyPrefix, errors.New("must not be empty"))
	}

	counterMax, err := dp.GetInt(cfgKeyRateLimitCounterMax)
	if err != nil {
		return err
	}
	if counterMax <= 0 || counterMax > maxSafeCounter {
		return dp.WrapKeyErr(cfgKeyRateLimitCounterMax, fmt.Errorf("must be in (0, %d]", int64(maxSafeCounter)))
	}
	c.CounterMax = uint64(counterMax)
	if c.Limit >= c.CounterMax {
		return dp.WrapKeyErr(cfgKeyRateLimitLimit, fmt.Errorf("must be lower than %s (%d)", cfgKeyRateLimitCounterMax, c.CounterMax))
	}
	return nil
}

func (c *RateLimitConfig) LimiterOptions() infra.LimiterOptions {
	return infra.LimiterOptions{
		Window:     c.Window,
		Limit:      c.Limit,
		KeyPrefix:  c.CounterKeyPrefix,
		CounterMax: c.CounterMax,
	}
}

type ActorsConfig struct {
	QueueSize      int
	SubmitTimeout  time.Duration
	FailFast       bool
	CommandTimeout time.Duration
}

func (c *ActorsConfig) KeyPrefix() string { return "actors" }

func (c *ActorsConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyActorsQueueSize, 128)
	dp.SetDefault(cfgKeyActorsSubmitTimeout, "0s")
	dp.SetDefault(cfgKeyActorsFailFast, false)
	dp.SetDefault(cfgKeyActorsCommandTimeout, "2s")
}

func (c *ActorsConfig) Set(dp config.DataProvider) error {
	var err error
	if c.QueueSize, err = dp.GetInt(cfgKeyActorsQueueSize); err != nil {
		return err
	}
	if c.QueueSize < 1 {
		return dp.WrapKeyErr(cfgKeyActorsQueueSize, errors.New("must be >= 1"))
	}
	if c.SubmitTimeout, err = dp.GetDuration(cfgKeyActorsSubmitTimeout); err != nil {
		return err
	}
	if c.SubmitTimeout < 0 {
		return dp.WrapKeyErr(cfgKeyActorsSubmitTimeout, errors.New("must be >= 0, use failFast to reject immediately"))
	}
	if c.FailFast, err = dp.GetBool(cfgKeyActorsFailFast); err != nil {
		return err
	}
	if c.CommandTimeout, err = dp.GetDuration(cfgKeyActorsCommandTimeout); err != nil {
		return err
	}
	if c.CommandTimeout <= 0 {
		return dp.WrapKeyErr(cfgKeyActorsCommandTimeout, errors.New("must be > 0"))
	}
	return nil
}

func (c *ActorsConfig) ActorOptions(metrics infra.MetricsCollector, logger log.FieldLogger) infra.ActorOptions {
	submitTimeout := c.SubmitTimeout
	if c.FailFast {
		submitTimeout = -1
	}
	return infra.ActorOptions{
		QueueSize:      c.QueueSize,
		SubmitTimeout:  submitTimeout,
		CommandTimeout: c.CommandTimeout,
		Metrics:        metrics,
		Logger:         logger,
	}
}

const (
	statsBackendMemory = "memory"
	statsBackendRedis  = "redis"
)

type StatsConfig struct {
	Enabled   bool
	Backend   string
	Prefix    string
	TTL       time.Duration
	Bucket    string
	TrackKeys bool
}

func (c *StatsConfig) KeyPrefix() string { return "stats" }

func (c *StatsConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyStatsEnabled, false)
	dp.SetDefault(cfgKeyStatsBackend, statsBackendRedis)
	dp.SetDefault(cfgKeyStatsPrefix, "kvgateway:stats")
	dp.SetDefault(cfgKeyStatsTTL, "24h")
	dp.SetDefault(cfgKeyStatsBucket, "minute")
	dp.SetDefault(cfgKeyStatsTrackKeys, false)
}

func (c *StatsConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyStatsEnabled); err != nil {
		return err
	}
	if c.Backend, err = dp.GetStringFromSet(cfgKeyStatsBackend, []string{statsBackendMemory, statsBackendRedis}, true); err != nil {
		return err
	}
	c.Backend = strings.ToLower(c.Backend)
	if c.Prefix, err = dp.GetString(cfgKeyStatsPrefix); err != nil {
		return err
	}
	if c.TTL, err = dp.GetDuration(cfgKeyStatsTTL); err != nil {
		return err
	}
	if c.Bucket, err = dp.GetStringFromSet(cfgKeyStatsBucket, []string{"minute", "none"}, true); err != nil {
		return err
	}
	if c.TrackKeys, err = dp.GetBool(cfgKeyStatsTrackKeys); err != nil {
		return err
	}
	return nil
}
