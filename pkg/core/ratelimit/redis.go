package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// The first hit in a window creates the key and starts its expiry.
var fixedWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter shares counters across instances through Redis.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.Scripter, limit int, windowSize time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	return &RedisLimiter{client: client, limit: limit, window: windowSize}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := fixedWindowScript.Run(ctx, l.client, []string{keyPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return n <= int64(l.limit), nil
}

// NewRedisClient builds a client with the pool settings used across services.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}
