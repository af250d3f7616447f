package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateNamespace = "leadflow:rate:"

// RedisRateLimiter counts requests per key in a fixed window shared by every
// api instance.
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	fullKey := rateNamespace + key

	count, err := l.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return false, err
	}
	// first hit opens the window
	if count == 1 {
		if err := l.client.Expire(ctx, fullKey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}
