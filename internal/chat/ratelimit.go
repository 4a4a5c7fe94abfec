package chat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a sender may post another message right now.
// The key is the registration ID so the limit follows the viewer across
// connections.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, error)
}

// RedisLimiter is a fixed-window counter shared across instances.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a Redis-backed rate limiter allowing limit
// messages per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	windowStart := now.Truncate(l.window).Unix()
	redisKey := fmt.Sprintf("chat:rl:%s:%s", key, strconv.FormatInt(windowStart, 10))

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}

// LocalLimiter keeps a per-sender token bucket in process memory. Used when
// Redis is not configured; buckets for idle senders expire from the cache.
type LocalLimiter struct {
	limiters *gocache.Cache
	limit    int
	window   time.Duration
}

// NewLocalLimiter creates an in-process rate limiter allowing limit messages
// per window.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limiters: gocache.New(2*window, 4*window),
		limit:    limit,
		window:   window,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, now time.Time) (bool, error) {
	var rl *rate.Limiter
	if v, ok := l.limiters.Get(key); ok {
		rl = v.(*rate.Limiter)
	} else {
		rl = rate.NewLimiter(rate.Limit(float64(l.limit)/l.window.Seconds()), l.limit)
		l.limiters.Set(key, rl, gocache.DefaultExpiration)
	}
	return rl.AllowN(now, 1), nil
}
