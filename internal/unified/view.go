// Package unified presents events and meetups as one type-tagged collection.
// It stores nothing of its own: every read is projected from the two entity
// caches.
package unified

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/entitycache"
)

// FilterType restricts a listing to one item type. It is consumed by the view
// and never forwarded to the caches.
const FilterType = "type"

type View struct {
	events  *entitycache.Cache[domain.Event]
	meetups *entitycache.Cache[domain.Meetup]
}

func New(events *entitycache.Cache[domain.Event], meetups *entitycache.Cache[domain.Meetup]) *View {
	return &View{events: events, meetups: meetups}
}

// Project tags each event and meetup, events first. It has no side effects
// and returns the same sequence for the same input.
func Project(events []domain.Event, meetups []domain.Meetup) []domain.UnifiedItem {
	out := make([]domain.UnifiedItem, 0, len(events)+len(meetups))
	for _, e := range events {
		out = append(out, domain.EventItem(e))
	}
	for _, m := range meetups {
		out = append(out, domain.MeetupItem(m))
	}
	return out
}

// Snapshot is the non-blocking read: whatever the caches hold right now,
// with background refreshes started for missing or stale lists.
type Snapshot struct {
	Items   []domain.UnifiedItem
	Loading bool
	Stale   bool
	Err     error
}

func (v *View) Snapshot(ctx context.Context, filter domain.Filter) Snapshot {
	wantEvents, wantMeetups, rest := split(filter)

	var s Snapshot
	var events []domain.Event
	var meetups []domain.Meetup

	if wantEvents {
		e := v.events.GetList(ctx, rest)
		events = e.Data
		s.merge(e.State, e.Err)
	}
	if wantMeetups {
		m := v.meetups.GetList(ctx, rest)
		meetups = m.Data
		s.merge(m.State, m.Err)
	}

	s.Items = Project(events, meetups)
	return s
}

func (s *Snapshot) merge(state entitycache.State, err error) {
	switch state {
	case entitycache.StateLoading:
		s.Loading = true
	case entitycache.StateStale:
		s.Stale = true
	case entitycache.StateError:
		if s.Err == nil {
			s.Err = err
		}
	}
}

// List waits for both sources and returns the merged collection.
func (v *View) List(ctx context.Context, filter domain.Filter) ([]domain.UnifiedItem, error) {
	const op = "unified.View.List"

	wantEvents, wantMeetups, rest := split(filter)

	var events []domain.Event
	var meetups []domain.Meetup

	g, gctx := errgroup.WithContext(ctx)
	if wantEvents {
		g.Go(func() error {
			e, err := v.events.FetchList(gctx, rest)
			if err != nil {
				return err
			}
			events = e.Data
			return nil
		})
	}
	if wantMeetups {
		g.Go(func() error {
			m, err := v.meetups.FetchList(gctx, rest)
			if err != nil {
				return err
			}
			meetups = m.Data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return Project(events, meetups), nil
}

// Get resolves id against the event details first, then the meetup details.
// found is false when neither source has the record.
func (v *View) Get(ctx context.Context, id string) (item domain.UnifiedItem, found bool, err error) {
	const op = "unified.View.Get"

	if id == "" {
		return domain.UnifiedItem{}, false, nil
	}

	e, eventErr := v.events.FetchDetail(ctx, id)
	if eventErr == nil && e.HasData {
		return domain.EventItem(e.Data), true, nil
	}

	m, meetupErr := v.meetups.FetchDetail(ctx, id)
	if meetupErr == nil && m.HasData {
		return domain.MeetupItem(m.Data), true, nil
	}

	switch {
	case eventErr != nil:
		return domain.UnifiedItem{}, false, fmt.Errorf("%s: %w", op, eventErr)
	case meetupErr != nil:
		return domain.UnifiedItem{}, false, fmt.Errorf("%s: %w", op, meetupErr)
	}

	return domain.UnifiedItem{}, false, nil
}

// OnChange calls fn whenever either source cache applies a change, which is
// when a projection can differ from the previous one.
func (v *View) OnChange(fn func()) (unsubscribe func()) {
	offEvents := v.events.Subscribe(func(entitycache.Change) { fn() })
	offMeetups := v.meetups.Subscribe(func(entitycache.Change) { fn() })

	return func() {
		offEvents()
		offMeetups()
	}
}

func split(filter domain.Filter) (events, meetups bool, rest domain.Filter) {
	t, ok := filter[FilterType]
	if !ok {
		return true, true, filter
	}

	rest = make(domain.Filter, len(filter)-1)
	for k, val := range filter {
		if k != FilterType {
			rest[k] = val
		}
	}

	switch domain.ItemType(t) {
	case domain.ItemEvent:
		return true, false, rest
	case domain.ItemMeetup:
		return false, true, rest
	}
	return true, true, rest
}
