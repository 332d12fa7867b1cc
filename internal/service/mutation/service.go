// Package mutation applies entity writes: the remote write first, then the
// local cache follow-ups once the write is confirmed.
package mutation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/entitycache"
	"github.com/kirinyoku/meetly/internal/notify"
	"github.com/kirinyoku/meetly/internal/remote"
	"github.com/kirinyoku/meetly/internal/uow"
)

// Publisher announces a confirmed write to other sessions.
type Publisher interface {
	PublishEntityChanged(ctx context.Context, kind domain.Kind, id string) error
}

type Metrics interface {
	TrackMutation(kind domain.Kind, operation string, err error)
}

type Deps struct {
	Publisher Publisher
	Notifier  notify.Notifier
	Metrics   Metrics
	Logger    *slog.Logger
}

// Service writes entities of one kind on behalf of one user.
type Service[T domain.Entity] struct {
	kind   domain.Kind
	userID string
	remote remote.Remote[T]
	cache  *entitycache.Cache[T]
	uow    *uow.UoW

	publisher Publisher
	notifier  notify.Notifier
	metrics   Metrics
	logger    *slog.Logger
}

func New[T domain.Entity](
	userID string,
	r remote.Remote[T],
	cache *entitycache.Cache[T],
	deps Deps,
) *Service[T] {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Service[T]{
		kind:      cache.Kind(),
		userID:    userID,
		remote:    r,
		cache:     cache,
		uow:       uow.New(),
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With("component", "mutation", "kind", cache.Kind()),
	}
}

// Create writes payload remotely and caches the stored record.
//
// Returns:
//   - T: the record as stored by the remote.
//   - error: *domain.RemoteError wrapping the remote cause. The cache is left
//     untouched in that case.
func (s *Service[T]) Create(ctx context.Context, payload T) (T, error) {
	const op = "service.mutation.Create"

	var created T
	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterWrite)) error {
		v, err := s.remote.Create(ctx, payload)
		if err != nil {
			return err
		}
		created = v

		s.afterWrite(after, v.EntityID(), func(context.Context) {
			s.cache.UpsertDetail(v.EntityID(), v)
		})
		return nil
	})
	s.track("create", err)
	if err != nil {
		var zero T
		return zero, s.fail(ctx, op, "create", err)
	}

	return created, nil
}

// Update applies patch to the record with id and caches the result.
//
// Returns:
//   - T: the updated record.
//   - error: *domain.RemoteError wrapping the remote cause.
func (s *Service[T]) Update(ctx context.Context, id string, patch remote.Patch) (T, error) {
	const op = "service.mutation.Update"

	var updated T
	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterWrite)) error {
		v, err := s.remote.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		updated = v

		s.afterWrite(after, id, func(context.Context) {
			s.cache.UpsertDetail(id, v)
		})
		return nil
	})
	s.track("update", err)
	if err != nil {
		var zero T
		return zero, s.fail(ctx, op, "update", err)
	}

	return updated, nil
}

// Delete removes the record with id and evicts it from the cache.
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	const op = "service.mutation.Delete"

	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterWrite)) error {
		if err := s.remote.Remove(ctx, id); err != nil {
			return err
		}

		s.afterWrite(after, id, func(context.Context) {
			s.cache.RemoveDetail(id)
		})
		return nil
	})
	s.track("delete", err)
	if err != nil {
		return s.fail(ctx, op, "delete", err)
	}

	return nil
}

// afterWrite registers the detail write, then the list invalidation, then the
// change announcement. The order keeps a detail read from seeing older data
// than the list refetch that follows it.
func (s *Service[T]) afterWrite(after func(uow.AfterWrite), id string, detail uow.AfterWrite) {
	after(detail)
	after(func(context.Context) {
		s.cache.Invalidate(entitycache.Lists())
	})
	after(func(ctx context.Context) {
		if s.publisher == nil {
			return
		}
		if err := s.publisher.PublishEntityChanged(ctx, s.kind, id); err != nil {
			s.logger.Warn("failed to publish entity change", "id", id, "error", err)
		}
	})
}

func (s *Service[T]) fail(ctx context.Context, op, verb string, err error) error {
	s.logger.Warn("remote write failed", "op", verb, "user_id", s.userID, "error", err)
	s.notifier.Notify(ctx, s.userID,
		fmt.Sprintf("Could not %s %s. Please try again.", verb, s.kind.Noun()),
		notify.SeverityError,
	)

	return &domain.RemoteError{Op: op, Err: err}
}

func (s *Service[T]) track(operation string, err error) {
	if s.metrics != nil {
		s.metrics.TrackMutation(s.kind, operation, err)
	}
}
