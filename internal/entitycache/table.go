package entitycache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	scopeList   = "list"
	scopeDetail = "detail"
)

type result[V any] struct {
	value V
	found bool
}

type loadFunc[V any] func(ctx context.Context) (V, bool, error)

// table holds the entries of one scope (lists or details) of one kind.
type table[V any] struct {
	core      *core
	scope     string
	staleTime time.Duration

	mu    sync.Mutex
	slots map[string]*slot[V]
}

func newTable[V any](c *core, scope string, staleTime time.Duration) *table[V] {
	return &table[V]{
		core:      c,
		scope:     scope,
		staleTime: staleTime,
		slots:     make(map[string]*slot[V]),
	}
}

// slotLocked returns the slot for key, creating it. t.mu must be held.
func (t *table[V]) slotLocked(key string) *slot[V] {
	s, ok := t.slots[key]
	if !ok {
		s = &slot[V]{}
		t.slots[key] = s
	}
	return s
}

func (t *table[V]) freshLocked(s *slot[V], now time.Time) bool {
	return s.fetched && !s.invalid && s.err == nil && now.Sub(s.fetchedAt) < t.staleTime
}

// get serves the entry without blocking. When the entry is missing, expired
// or invalidated a background fetch is started and the last known data (or a
// loading placeholder) is returned right away.
func (t *table[V]) get(ctx context.Context, key string, load loadFunc[V]) Entry[V] {
	t.mu.Lock()
	s := t.slotLocked(key)
	if t.freshLocked(s, t.core.clock.Now()) {
		e := s.entry(StateIdle)
		t.mu.Unlock()
		t.core.metrics.Hit(t.core.kind, t.scope)
		return e
	}

	start := !s.inflight()
	if start {
		s.loading = true
		s.loadingGen = s.gen
	}
	gen := s.gen

	var e Entry[V]
	switch {
	case s.err != nil:
		e = s.entry(StateError)
	case s.fetched:
		e = s.entry(StateStale)
	default:
		e = s.entry(StateLoading)
	}
	t.mu.Unlock()

	t.core.metrics.Miss(t.core.kind, t.scope)
	if start {
		go t.refresh(ctx, key, s, gen, load)
	}

	return e
}

// fetch returns an authoritative entry, waiting for the remote when the
// cached one is not fresh.
func (t *table[V]) fetch(ctx context.Context, key string, load loadFunc[V]) (Entry[V], error) {
	t.mu.Lock()
	s := t.slotLocked(key)
	if t.freshLocked(s, t.core.clock.Now()) {
		e := s.entry(StateIdle)
		t.mu.Unlock()
		t.core.metrics.Hit(t.core.kind, t.scope)
		return e, nil
	}

	if !s.inflight() {
		s.loading = true
		s.loadingGen = s.gen
	}
	gen := s.gen
	t.mu.Unlock()

	t.core.metrics.Miss(t.core.kind, t.scope)

	if err := t.refresh(ctx, key, s, gen, load); err != nil {
		t.mu.Lock()
		e := s.entry(StateError)
		t.mu.Unlock()
		e.Err = err
		return e, err
	}
	if err := ctx.Err(); err != nil {
		return Entry[V]{State: StateIdle}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.freshLocked(s, t.core.clock.Now()) {
		return s.entry(StateIdle), nil
	}

	// Superseded by an invalidation while the fetch was in flight.
	return s.entry(StateStale), nil
}

func (t *table[V]) refresh(ctx context.Context, key string, s *slot[V], gen uint64, load loadFunc[V]) error {
	flight := fmt.Sprintf("%s:%s:%d", t.scope, key, gen)
	started := time.Now()

	res, err, _ := t.core.sf.Do(flight, func() (any, error) {
		v, found, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return result[V]{value: v, found: found}, nil
	})

	t.core.metrics.Fetched(t.core.kind, t.scope, time.Since(started), err)

	r, _ := res.(result[V])
	t.apply(ctx, key, s, gen, r, err)

	return err
}

func (t *table[V]) apply(ctx context.Context, key string, s *slot[V], gen uint64, r result[V], err error) {
	t.mu.Lock()

	if s.loadingGen == gen {
		s.loading = false
	}

	cur, ok := t.slots[key]
	if !ok || cur != s || s.gen != gen || ctx.Err() != nil {
		t.mu.Unlock()
		t.core.logger.Debug("dropping late fetch result",
			"kind", t.core.kind, "scope", t.scope, "key", key)
		return
	}

	if err != nil {
		s.err = err
		t.mu.Unlock()
		t.core.logger.Warn("fetch failed",
			"kind", t.core.kind, "scope", t.scope, "key", key, "error", err)
		t.core.emit(Change{Kind: t.core.kind, Scope: t.scope, Key: key})
		return
	}

	s.data = r.value
	s.hasData = r.found
	s.fetched = true
	s.fetchedAt = t.core.clock.Now()
	s.err = nil
	s.invalid = false
	t.mu.Unlock()

	t.core.emit(Change{Kind: t.core.kind, Scope: t.scope, Key: key})
}

func (t *table[V]) peek(key string) (Entry[V], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[key]
	if !ok {
		return Entry[V]{State: StateIdle}, false
	}

	switch {
	case t.freshLocked(s, t.core.clock.Now()):
		return s.entry(StateIdle), true
	case s.err != nil:
		return s.entry(StateError), true
	case s.fetched:
		return s.entry(StateStale), true
	case s.inflight():
		return s.entry(StateLoading), true
	}

	return s.entry(StateIdle), false
}

func (t *table[V]) invalidate(match func(key string) bool) {
	var keys []string

	t.mu.Lock()
	for key, s := range t.slots {
		if !match(key) {
			continue
		}
		s.invalid = true
		s.gen++
		keys = append(keys, key)
	}
	t.mu.Unlock()

	for _, key := range keys {
		t.core.emit(Change{Kind: t.core.kind, Scope: t.scope, Key: key, Invalidated: true})
	}
}

func (t *table[V]) upsert(key string, v V) {
	t.mu.Lock()
	s := t.slotLocked(key)
	s.gen++
	s.data = v
	s.hasData = true
	s.fetched = true
	s.fetchedAt = t.core.clock.Now()
	s.err = nil
	s.invalid = false
	t.mu.Unlock()

	t.core.emit(Change{Kind: t.core.kind, Scope: t.scope, Key: key})
}

func (t *table[V]) remove(key string) {
	t.mu.Lock()
	_, ok := t.slots[key]
	delete(t.slots, key)
	t.mu.Unlock()

	if ok {
		t.core.emit(Change{Kind: t.core.kind, Scope: t.scope, Key: key, Removed: true})
	}
}
