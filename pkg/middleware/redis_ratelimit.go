package middleware

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisRateLimiter implements the Limiter interface on redis so limits are
// shared across instances. Counting is the same fixed-window scheme as the
// in-memory limiter, expressed as INCR with a window-length expiry.
type RedisRateLimiter struct {
	redis  *redis.Client
	policy Policy
	prefix string
}

// NewRedisRateLimiter creates a redis-backed limiter for the given policy
func NewRedisRateLimiter(client *redis.Client, policy Policy, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		redis:  client,
		policy: policy,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed using an atomic INCR
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.policy.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(l.policy.Requests), nil
}

// Remaining returns the number of remaining requests in the window
func (l *RedisRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return l.policy.Requests, nil
	} else if err != nil {
		return 0, err
	}

	remaining := l.policy.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for a key (for tests or admin use)
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, fmt.Sprintf("%s:%s", l.prefix, key)).Err()
}
