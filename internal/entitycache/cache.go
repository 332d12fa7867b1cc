// Package entitycache keeps fetched entity lists and details per kind and
// decides when a reader has to go back to the remote.
package entitycache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirinyoku/meetly/internal/clock"
	"github.com/kirinyoku/meetly/internal/domain"
)

const (
	DefaultListStaleTime   = 2 * time.Minute
	DefaultDetailStaleTime = 5 * time.Minute
)

// ListLoader fetches a list of entities matching filter.
type ListLoader[T any] func(ctx context.Context, filter domain.Filter) ([]T, error)

// DetailLoader fetches one entity. found is false when the remote has no
// record for id.
type DetailLoader[T any] func(ctx context.Context, id string) (value T, found bool, err error)

// Metrics receives cache outcomes. The monitoring package implements it.
type Metrics interface {
	Hit(kind domain.Kind, scope string)
	Miss(kind domain.Kind, scope string)
	Fetched(kind domain.Kind, scope string, took time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) Hit(domain.Kind, string)                          {}
func (nopMetrics) Miss(domain.Kind, string)                         {}
func (nopMetrics) Fetched(domain.Kind, string, time.Duration, error) {}

// Change describes an applied write to the cache.
type Change struct {
	Kind        domain.Kind
	Scope       string
	Key         string
	Invalidated bool
	Removed     bool
}

type Options struct {
	ListStaleTime   time.Duration
	DetailStaleTime time.Duration
	Clock           clock.Clock
	Logger          *slog.Logger
	Metrics         Metrics
}

type listener struct {
	id int
	fn func(Change)
}

type core struct {
	kind    domain.Kind
	clock   clock.Clock
	logger  *slog.Logger
	metrics Metrics
	sf      singleflight.Group

	lmu       sync.Mutex
	nextID    int
	listeners []listener
}

func (c *core) emit(ch Change) {
	c.lmu.Lock()
	ls := make([]listener, len(c.listeners))
	copy(ls, c.listeners)
	c.lmu.Unlock()

	for _, l := range ls {
		l.fn(ch)
	}
}

// Cache is the list and detail cache of one entity kind.
type Cache[T domain.Entity] struct {
	core    *core
	lists   *table[[]T]
	details *table[T]

	loadList   ListLoader[T]
	loadDetail DetailLoader[T]
}

func New[T domain.Entity](kind domain.Kind, lists ListLoader[T], details DetailLoader[T], opts Options) *Cache[T] {
	if opts.ListStaleTime <= 0 {
		opts.ListStaleTime = DefaultListStaleTime
	}

	if opts.DetailStaleTime <= 0 {
		opts.DetailStaleTime = DefaultDetailStaleTime
	}

	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}

	c := &core{
		kind:    kind,
		clock:   opts.Clock,
		logger:  opts.Logger.With("component", "entitycache"),
		metrics: opts.Metrics,
	}

	return &Cache[T]{
		core:       c,
		lists:      newTable[[]T](c, scopeList, opts.ListStaleTime),
		details:    newTable[T](c, scopeDetail, opts.DetailStaleTime),
		loadList:   lists,
		loadDetail: details,
	}
}

func (c *Cache[T]) Kind() domain.Kind { return c.core.kind }

// GetList returns the cached list for filter. If it is missing, expired or
// invalidated, a background fetch bound to ctx is started and the last known
// list (state stale) or an empty placeholder (state loading) is returned.
// Cancelling ctx before the fetch settles discards its result.
func (c *Cache[T]) GetList(ctx context.Context, filter domain.Filter) Entry[[]T] {
	return c.lists.get(ctx, filter.Key(), c.listLoad(filter))
}

// FetchList is GetList that waits for the remote instead of returning a
// placeholder. It joins a fetch already in flight for the same entry.
func (c *Cache[T]) FetchList(ctx context.Context, filter domain.Filter) (Entry[[]T], error) {
	return c.lists.fetch(ctx, filter.Key(), c.listLoad(filter))
}

// PeekList returns the cached list without triggering a fetch.
func (c *Cache[T]) PeekList(filter domain.Filter) (Entry[[]T], bool) {
	return c.lists.peek(filter.Key())
}

// GetDetail is the detail counterpart of GetList. A blank id never fetches
// and yields an idle, empty entry.
func (c *Cache[T]) GetDetail(ctx context.Context, id string) Entry[T] {
	if id == "" {
		return Entry[T]{State: StateIdle}
	}
	return c.details.get(ctx, id, c.detailLoad(id))
}

// FetchDetail is the detail counterpart of FetchList.
func (c *Cache[T]) FetchDetail(ctx context.Context, id string) (Entry[T], error) {
	if id == "" {
		return Entry[T]{State: StateIdle}, nil
	}
	return c.details.fetch(ctx, id, c.detailLoad(id))
}

func (c *Cache[T]) PeekDetail(id string) (Entry[T], bool) {
	if id == "" {
		return Entry[T]{State: StateIdle}, false
	}
	return c.details.peek(id)
}

// Invalidate marks the entries selected by scope stale. Their data keeps
// being served, but the next read refetches regardless of age and fetches
// already in flight for them are discarded.
func (c *Cache[T]) Invalidate(scope Scope) {
	if scope.lists {
		c.lists.invalidate(scope.matchList)
	}
	if scope.details {
		c.details.invalidate(scope.matchDetail)
	}
}

// UpsertDetail writes v as the fresh detail entry for id.
func (c *Cache[T]) UpsertDetail(id string, v T) {
	if id == "" {
		return
	}
	c.details.upsert(id, v)
}

// RemoveDetail evicts the detail entry for id.
func (c *Cache[T]) RemoveDetail(id string) {
	c.details.remove(id)
}

// Subscribe registers fn to be called after every applied change. The
// returned func removes the subscription.
func (c *Cache[T]) Subscribe(fn func(Change)) func() {
	c.core.lmu.Lock()
	defer c.core.lmu.Unlock()

	c.core.nextID++
	id := c.core.nextID
	c.core.listeners = append(c.core.listeners, listener{id: id, fn: fn})

	return func() {
		c.core.lmu.Lock()
		defer c.core.lmu.Unlock()

		for i, l := range c.core.listeners {
			if l.id == id {
				c.core.listeners = append(c.core.listeners[:i], c.core.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Cache[T]) listLoad(filter domain.Filter) loadFunc[[]T] {
	return func(ctx context.Context) ([]T, bool, error) {
		items, err := c.loadList(ctx, filter)
		if err != nil {
			return nil, false, err
		}
		return items, true, nil
	}
}

func (c *Cache[T]) detailLoad(id string) loadFunc[T] {
	return func(ctx context.Context) (T, bool, error) {
		return c.loadDetail(ctx, id)
	}
}
