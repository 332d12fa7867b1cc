package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/remote"
)

type TTLs struct {
	List   time.Duration
	Detail time.Duration
}

type detailEnvelope[T any] struct {
	Value T    `json:"value"`
	Found bool `json:"found"`
}

// CachedRemote serves reads of one kind from the shared Redis cache, falling
// back to next. Writes go to next and then drop the affected keys.
type CachedRemote[T domain.Entity] struct {
	kind   domain.Kind
	next   remote.Remote[T]
	cache  *Cache
	ttls   TTLs
	logger *slog.Logger
}

func NewCachedRemote[T domain.Entity](
	kind domain.Kind,
	next remote.Remote[T],
	cache *Cache,
	ttls TTLs,
	logger *slog.Logger,
) *CachedRemote[T] {
	if ttls.List <= 0 {
		ttls.List = 30 * time.Second
	}

	if ttls.Detail <= 0 {
		ttls.Detail = 60 * time.Second
	}

	return &CachedRemote[T]{
		kind:   kind,
		next:   next,
		cache:  cache,
		ttls:   ttls,
		logger: logger,
	}
}

func (r *CachedRemote[T]) FetchList(ctx context.Context, filter domain.Filter) ([]T, error) {
	const op = "redis.CachedRemote.FetchList"

	// The generation is read before the remote so a list loaded across an
	// invalidation lands under the orphaned generation.
	gen, err := r.cache.ListGeneration(ctx, r.kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := GetOrSetJSON(ctx, r.cache, KeyEntityList(r.kind, gen, filter.Key()), r.ttls.List,
		func(ctx context.Context) ([]T, error) {
			return r.next.FetchList(ctx, filter)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (r *CachedRemote[T]) FetchDetail(ctx context.Context, id string) (T, bool, error) {
	const op = "redis.CachedRemote.FetchDetail"

	env, err := GetOrSetJSON(ctx, r.cache, KeyEntityDetail(r.kind, id), r.ttls.Detail,
		func(ctx context.Context) (detailEnvelope[T], error) {
			v, found, err := r.next.FetchDetail(ctx, id)
			if err != nil {
				return detailEnvelope[T]{}, err
			}
			return detailEnvelope[T]{Value: v, Found: found}, nil
		},
	)
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("%s: %w", op, err)
	}

	return env.Value, env.Found, nil
}

func (r *CachedRemote[T]) Create(ctx context.Context, payload T) (T, error) {
	v, err := r.next.Create(ctx, payload)
	if err != nil {
		return v, err
	}

	r.invalidate(ctx, v.EntityID())
	return v, nil
}

func (r *CachedRemote[T]) Update(ctx context.Context, id string, patch remote.Patch) (T, error) {
	v, err := r.next.Update(ctx, id, patch)
	if err != nil {
		return v, err
	}

	r.invalidate(ctx, id)
	return v, nil
}

func (r *CachedRemote[T]) Remove(ctx context.Context, id string) error {
	if err := r.next.Remove(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx, id)
	return nil
}

// invalidate is best effort: the write already happened and cached entries
// expire on their own.
func (r *CachedRemote[T]) invalidate(ctx context.Context, id string) {
	if err := r.cache.InvalidateEntity(ctx, r.kind, id); err != nil {
		r.logger.Warn("failed to invalidate shared cache", "kind", r.kind, "id", id, "error", err)
	}
}
