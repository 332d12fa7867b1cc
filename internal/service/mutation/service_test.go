package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/meetly/internal/clock"
	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/entitycache"
	"github.com/kirinyoku/meetly/internal/notify"
	"github.com/kirinyoku/meetly/internal/remote"
)

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]domain.Event
	err    error
}

func (f *fakeEvents) FetchList(context.Context, domain.Filter) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEvents) FetchDetail(_ context.Context, id string) (domain.Event, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	return e, ok, nil
}

func (f *fakeEvents) Create(_ context.Context, e domain.Event) (domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Event{}, f.err
	}
	e.ID = "e-new"
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeEvents) Update(_ context.Context, id string, patch remote.Patch) (domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Event{}, f.err
	}
	e := f.events[id]
	if title, ok := patch["title"].(string); ok {
		e.Title = title
	}
	f.events[id] = e
	return e, nil
}

func (f *fakeEvents) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.events, id)
	return nil
}

type fakePublisher struct {
	ids []string
}

func (p *fakePublisher) PublishEntityChanged(_ context.Context, _ domain.Kind, id string) error {
	p.ids = append(p.ids, id)
	return nil
}

type fixture struct {
	remote  *fakeEvents
	cache   *entitycache.Cache[domain.Event]
	pub     *fakePublisher
	notices *notify.Buffer
	svc     *Service[domain.Event]
}

func newFixture(t *testing.T, events ...domain.Event) *fixture {
	t.Helper()

	r := &fakeEvents{events: make(map[string]domain.Event)}
	for _, e := range events {
		r.events[e.ID] = e
	}

	cache := entitycache.New[domain.Event](domain.KindEvent, r.FetchList, r.FetchDetail,
		entitycache.Options{Clock: clock.NewManual(time.Now())})
	pub := &fakePublisher{}
	notices := notify.NewBuffer(8)

	return &fixture{
		remote:  r,
		cache:   cache,
		pub:     pub,
		notices: notices,
		svc:     New[domain.Event]("u1", r, cache, Deps{Publisher: pub, Notifier: notices}),
	}
}

func TestService_CreateUpsertsThenInvalidatesLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cache.FetchList(ctx, nil)
	require.NoError(t, err)

	var order []entitycache.Change
	f.cache.Subscribe(func(c entitycache.Change) { order = append(order, c) })

	created, err := f.svc.Create(ctx, domain.Event{Title: "Jazz night", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, "e-new", created.ID)

	require.Len(t, order, 2)
	assert.Equal(t, "detail", order[0].Scope)
	assert.Equal(t, "e-new", order[0].Key)
	assert.Equal(t, "list", order[1].Scope)
	assert.True(t, order[1].Invalidated)

	e, ok := f.cache.PeekDetail("e-new")
	require.True(t, ok)
	assert.Equal(t, "Jazz night", e.Data.Title)

	l, _ := f.cache.PeekList(nil)
	assert.Equal(t, entitycache.StateStale, l.State)

	assert.Equal(t, []string{"e-new"}, f.pub.ids)
}

func TestService_UpdateReplacesCachedSnapshot(t *testing.T) {
	f := newFixture(t, domain.Event{ID: "e1", Title: "old"})
	ctx := context.Background()

	_, err := f.cache.FetchDetail(ctx, "e1")
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "e1", remote.Patch{"title": "new"})
	require.NoError(t, err)

	e, ok := f.cache.PeekDetail("e1")
	require.True(t, ok)
	assert.Equal(t, entitycache.StateIdle, e.State)
	assert.Equal(t, "new", e.Data.Title)
}

func TestService_DeleteEvictsDetail(t *testing.T) {
	f := newFixture(t, domain.Event{ID: "e1"})
	ctx := context.Background()

	_, err := f.cache.FetchDetail(ctx, "e1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "e1"))

	_, ok := f.cache.PeekDetail("e1")
	assert.False(t, ok)
	assert.Equal(t, []string{"e1"}, f.pub.ids)
}

func TestService_FailureLeavesCacheAndNotifies(t *testing.T) {
	f := newFixture(t, domain.Event{ID: "e1", Title: "old"})
	ctx := context.Background()

	_, err := f.cache.FetchDetail(ctx, "e1")
	require.NoError(t, err)

	var changes int
	f.cache.Subscribe(func(entitycache.Change) { changes++ })

	boom := errors.New("connection reset")
	f.remote.err = boom

	_, err = f.svc.Update(ctx, "e1", remote.Patch{"title": "new"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteFailure)
	assert.ErrorIs(t, err, boom)

	assert.Zero(t, changes)
	e, _ := f.cache.PeekDetail("e1")
	assert.Equal(t, "old", e.Data.Title)
	assert.Empty(t, f.pub.ids)

	notices := f.notices.Drain("u1")
	require.Len(t, notices, 1)
	assert.Equal(t, notify.SeverityError, notices[0].Severity)
	assert.Equal(t, "Could not update event. Please try again.", notices[0].Message)
}
