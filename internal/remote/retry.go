package remote

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/repository"
)

const DefaultMaxAttempts = 3

type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// IsClientError reports failures caused by the request itself. Retrying them
// cannot succeed.
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrInvalid),
		errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) && len(pge.Code) >= 2 {
		// data exception, integrity violation, auth, syntax/access
		switch pge.Code[:2] {
		case "22", "23", "28", "42":
			return true
		}
	}

	return false
}

// Do calls fn until it succeeds, fails with a client error, or the policy's
// attempts are used up.
func Do[V any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (V, error)) (V, error) {
	var (
		v   V
		err error
	)

	for attempt := 1; ; attempt++ {
		v, err = fn(ctx)
		if err == nil || IsClientError(err) || attempt >= p.attempts() {
			return v, err
		}

		if p.Delay > 0 {
			t := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return v, err
			case <-t.C:
			}
		}
	}
}

type retrying[T any] struct {
	next   Remote[T]
	policy RetryPolicy
}

// WithRetry wraps next with policy.
func WithRetry[T any](next Remote[T], policy RetryPolicy) Remote[T] {
	return &retrying[T]{next: next, policy: policy}
}

func (r *retrying[T]) FetchList(ctx context.Context, filter domain.Filter) ([]T, error) {
	return Do(ctx, r.policy, func(ctx context.Context) ([]T, error) {
		return r.next.FetchList(ctx, filter)
	})
}

type detailResult[T any] struct {
	value T
	found bool
}

func (r *retrying[T]) FetchDetail(ctx context.Context, id string) (T, bool, error) {
	res, err := Do(ctx, r.policy, func(ctx context.Context) (detailResult[T], error) {
		v, found, err := r.next.FetchDetail(ctx, id)
		return detailResult[T]{value: v, found: found}, err
	})
	return res.value, res.found, err
}

func (r *retrying[T]) Create(ctx context.Context, payload T) (T, error) {
	return Do(ctx, r.policy, func(ctx context.Context) (T, error) {
		return r.next.Create(ctx, payload)
	})
}

func (r *retrying[T]) Update(ctx context.Context, id string, patch Patch) (T, error) {
	return Do(ctx, r.policy, func(ctx context.Context) (T, error) {
		return r.next.Update(ctx, id, patch)
	})
}

func (r *retrying[T]) Remove(ctx context.Context, id string) error {
	_, err := Do(ctx, r.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.Remove(ctx, id)
	})
	return err
}

type retryingFavorites struct {
	next   Favorites
	policy RetryPolicy
}

// FavoritesWithRetry wraps next with policy.
func FavoritesWithRetry(next Favorites, policy RetryPolicy) Favorites {
	return &retryingFavorites{next: next, policy: policy}
}

func (r *retryingFavorites) InsertFavorite(ctx context.Context, userID, itemID string, online bool) error {
	_, err := Do(ctx, r.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.InsertFavorite(ctx, userID, itemID, online)
	})
	return err
}

func (r *retryingFavorites) DeleteFavorite(ctx context.Context, userID, itemID string) error {
	_, err := Do(ctx, r.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.next.DeleteFavorite(ctx, userID, itemID)
	})
	return err
}

func (r *retryingFavorites) ListFavorites(ctx context.Context, userID string) ([]domain.FavoriteMarker, error) {
	return Do(ctx, r.policy, func(ctx context.Context) ([]domain.FavoriteMarker, error) {
		return r.next.ListFavorites(ctx, userID)
	})
}
