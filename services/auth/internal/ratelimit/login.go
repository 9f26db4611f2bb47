// Package ratelimit throttles failed logins per client IP with Redis
// fixed-window counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrLimited          = errors.New("too many login attempts")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "auth:login:ip:"

type LoginLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(rdb redis.UniversalClient, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{redis: rdb, maxAttempts: maxAttempts, window: window}
}

// Allow returns ErrLimited together with the time left in the window once
// the budget for ip is spent.
func (l *LoginLimiter) Allow(ctx context.Context, ip string) (time.Duration, error) {
	key := keyPrefix + ip

	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < int64(l.maxAttempts) {
		return 0, nil
	}

	ttl, err := l.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		ttl = l.window
	}
	return ttl, ErrLimited
}

// Fail records one failed attempt. The window starts at the first failure.
func (l *LoginLimiter) Fail(ctx context.Context, ip string) error {
	key := keyPrefix + ip

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

func (l *LoginLimiter) Reset(ctx context.Context, ip string) error {
	if err := l.redis.Del(ctx, keyPrefix+ip).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
