package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter allows limit hits per id within each window.
type FixedWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewFixedWindowLimiter(rdb *redis.Client, scope string, limit int64, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow counts one hit for id and reports whether it fits in the current
// window, and how long until the window resets.
func (l *FixedWindowLimiter) Allow(ctx context.Context, id string) (bool, time.Duration, error) {
	now := l.now()
	bucket := now.UnixNano() / int64(l.window)
	key := KeyRateLimit(l.scope, id, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	resetAt := time.Unix(0, (bucket+1)*int64(l.window))
	return incr.Val() <= l.limit, resetAt.Sub(now), nil
}
