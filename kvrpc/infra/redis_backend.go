package infra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"kv-gateway/kvrpc/domain"
)

// incrementWindowScript é a primitiva atômica do rate limit: incremento
// saturado em ARGV[2] + PEXPIRE somente se a chave ainda não tiver TTL.
var incrementWindowScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current == nil then
  return redis.error_reply("ERR value is not an integer or out of range")
end
if current < tonumber(ARGV[2]) then
  current = redis.call("INCR", KEYS[1])
end
if redis.call("PTTL", KEYS[1]) == -1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisBackend implementa domain.Backend sobre go-redis.
type RedisBackend struct {
	rdb redis.UniversalClient
}

func NewRedisBackend(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	return b.rdb.Set(ctx, key, value, 0).Err()
}

func (b *RedisBackend) IncrementWindow(ctx context.Context, key string, window time.Duration, max uint64) (uint64, error) {
	windowMs := window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}
	n, err := incrementWindowScript.Run(ctx, b.rdb, []string{key}, windowMs, max).Int64()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("redis: negative window counter")
	}
	return uint64(n), nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}
