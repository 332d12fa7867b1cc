package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

var ErrIdempotencyInProgress = errors.New("request with this idempotency key is in progress")

// Idempotency remembers the outcome of a keyed request so a replay returns
// the first answer instead of repeating the side effect.
type Idempotency struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotency(rdb *redis.Client, ttl, lockTTL time.Duration) *Idempotency {
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &Idempotency{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

// Begin claims key. When a previous request already finished, its stored
// payload is returned with done=true. ErrIdempotencyInProgress means another
// request holds the claim.
func (s *Idempotency) Begin(ctx context.Context, key string) (payload string, done bool, err error) {
	ok, err := s.rdb.SetNX(ctx, key, idemLock, s.lockTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", false, nil
	}

	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, ErrIdempotencyInProgress
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasPrefix(v, idemResult) {
		return strings.TrimPrefix(v, idemResult), true, nil
	}

	return "", false, ErrIdempotencyInProgress
}

// Complete stores payload as the answer for key.
func (s *Idempotency) Complete(ctx context.Context, key, payload string) error {
	return s.rdb.Set(ctx, key, idemResult+payload, s.ttl).Err()
}

// Abort releases key so the request can be retried.
func (s *Idempotency) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
