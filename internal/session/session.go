// Package session builds the per-user state containers: caches, the unified
// view, favorites, the booking workflow and the write services. A session is
// created at sign-in and torn down at sign-out.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirinyoku/meetly/internal/booking"
	"github.com/kirinyoku/meetly/internal/checkout"
	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/entitycache"
	"github.com/kirinyoku/meetly/internal/favorites"
	"github.com/kirinyoku/meetly/internal/monitoring"
	"github.com/kirinyoku/meetly/internal/notify"
	"github.com/kirinyoku/meetly/internal/remote"
	"github.com/kirinyoku/meetly/internal/service/mutation"
	"github.com/kirinyoku/meetly/internal/unified"
)

// FilterUserID scopes favorite lists to one user.
const FilterUserID = "user_id"

type Remotes struct {
	Events    remote.Remote[domain.Event]
	Meetups   remote.Remote[domain.Meetup]
	Bookings  remote.Remote[domain.Booking]
	Users     remote.Remote[domain.User]
	Favorites remote.Favorites
}

type Deps struct {
	Remotes    Remotes
	Publisher  mutation.Publisher
	Checkout   checkout.Sender
	Notices    *notify.Buffer
	Notifier   notify.Notifier
	Monitor    *monitoring.Monitor
	Cache      entitycache.Options
	Duplicates booking.DuplicatePolicy
	Logger     *slog.Logger
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	Events   *entitycache.Cache[domain.Event]
	Meetups  *entitycache.Cache[domain.Meetup]
	Bookings *entitycache.Cache[domain.Booking]
	Users    *entitycache.Cache[domain.User]

	Items *unified.View
	// FavoriteItems is the favorites screen: the confirmed favorite set of
	// a user, keyed by FilterUserID and refreshed after every confirmed
	// toggle or remote favorites change.
	FavoriteItems *entitycache.Cache[domain.UnifiedItem]

	Favorites *favorites.Reconciler
	Booking   *booking.Workflow
	Wizard    *booking.Stepper

	EventWrites   *mutation.Service[domain.Event]
	MeetupWrites  *mutation.Service[domain.Meetup]
	BookingWrites *mutation.Service[domain.Booking]
	UserWrites    *mutation.Service[domain.User]
	Checkout      *checkout.Submitter

	// ctx outlives single requests and scopes background refreshes. Close
	// cancels it so late results are dropped.
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func newSession(id, userID string, deps Deps) *Session {
	logger := deps.Logger.With("session_id", id, "user_id", userID)

	var notifier notify.Notifier = notify.Nop{}
	switch {
	case deps.Notices != nil && deps.Notifier != nil:
		notifier = notify.Multi{deps.Notices, deps.Notifier}
	case deps.Notices != nil:
		notifier = deps.Notices
	case deps.Notifier != nil:
		notifier = deps.Notifier
	}

	cacheOpts := deps.Cache
	cacheOpts.Logger = logger
	if deps.Monitor != nil {
		cacheOpts.Metrics = deps.Monitor
	}

	r := deps.Remotes
	s := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now(),
		logger:    logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.Events = entitycache.New[domain.Event](domain.KindEvent, r.Events.FetchList, r.Events.FetchDetail, cacheOpts)
	s.Meetups = entitycache.New[domain.Meetup](domain.KindMeetup, r.Meetups.FetchList, r.Meetups.FetchDetail, cacheOpts)
	s.Bookings = entitycache.New[domain.Booking](domain.KindBooking, r.Bookings.FetchList, r.Bookings.FetchDetail, cacheOpts)
	s.Users = entitycache.New[domain.User](domain.KindUser, r.Users.FetchList, r.Users.FetchDetail, cacheOpts)

	s.Items = unified.New(s.Events, s.Meetups)

	favOpts := favorites.Options{
		Notifier: notifier,
		Logger:   logger,
		OnChange: func(_ context.Context, uid string) {
			s.FavoriteItems.Invalidate(entitycache.List(domain.Filter{FilterUserID: uid}))
		},
	}
	bookingOpts := booking.Options{Duplicates: deps.Duplicates, Logger: logger}
	mutDeps := mutation.Deps{Publisher: deps.Publisher, Notifier: notifier, Logger: logger}
	if deps.Monitor != nil {
		favOpts.Metrics = deps.Monitor
		bookingOpts.Metrics = deps.Monitor
		mutDeps.Metrics = deps.Monitor
	}

	s.Favorites = favorites.New(r.Favorites, favOpts)
	s.FavoriteItems = entitycache.New[domain.UnifiedItem](domain.KindFavorite,
		favoriteList(s.Favorites), favoriteDetail(s.Favorites, userID), cacheOpts)
	s.Booking = booking.NewWorkflow(bookingOpts)
	s.Wizard = booking.NewStepper()

	s.EventWrites = mutation.New[domain.Event](userID, r.Events, s.Events, mutDeps)
	s.MeetupWrites = mutation.New[domain.Meetup](userID, r.Meetups, s.Meetups, mutDeps)
	s.BookingWrites = mutation.New[domain.Booking](userID, r.Bookings, s.Bookings, mutDeps)
	s.UserWrites = mutation.New[domain.User](userID, r.Users, s.Users, mutDeps)

	s.Checkout = checkout.NewSubmitter(userID, s.BookingWrites, deps.Checkout, logger)

	return s
}

func favoriteList(r *favorites.Reconciler) entitycache.ListLoader[domain.UnifiedItem] {
	return func(_ context.Context, filter domain.Filter) ([]domain.UnifiedItem, error) {
		userID := filter[FilterUserID]
		if userID == "" {
			return nil, domain.ErrUnauthenticated
		}
		items := r.Items(userID)
		if items == nil {
			items = []domain.UnifiedItem{}
		}
		return items, nil
	}
}

func favoriteDetail(r *favorites.Reconciler, userID string) entitycache.DetailLoader[domain.UnifiedItem] {
	return func(_ context.Context, id string) (domain.UnifiedItem, bool, error) {
		for _, it := range r.Items(userID) {
			if it.ID() == id {
				return it, true, nil
			}
		}
		return domain.UnifiedItem{}, false, nil
	}
}

// Context is done once the session is closed.
func (s *Session) Context() context.Context { return s.ctx }

// load seeds the favorite set from the remote favorites table.
func (s *Session) load(ctx context.Context) {
	if err := s.Favorites.Load(ctx, s.UserID, s.Items); err != nil {
		s.logger.Warn("failed to load favorites", "error", err)
	}
}

// applyRemoteChange marks the changed record and every list of its kind
// stale. Data keeps being served until the refetch lands.
func (s *Session) applyRemoteChange(_ context.Context, kind domain.Kind, id string) {
	scope := entitycache.Detail(id)

	switch kind {
	case domain.KindEvent:
		s.Events.Invalidate(scope)
		s.Events.Invalidate(entitycache.Lists())
	case domain.KindMeetup:
		s.Meetups.Invalidate(scope)
		s.Meetups.Invalidate(entitycache.Lists())
	case domain.KindBooking:
		s.Bookings.Invalidate(scope)
		s.Bookings.Invalidate(entitycache.Lists())
	case domain.KindUser:
		s.Users.Invalidate(scope)
		s.Users.Invalidate(entitycache.Lists())
	case domain.KindFavorite:
		// id is the user whose favorites table changed.
		if id != s.UserID {
			return
		}
		go func() {
			s.load(s.ctx)
			s.FavoriteItems.Invalidate(entitycache.All())
		}()
	default:
		s.logger.Debug("ignoring change of unknown kind", "kind", kind)
	}
}

// Close drops the session's state and abandons its background refreshes.
func (s *Session) Close() {
	s.cancel()
	s.Booking.Clear()
	s.Wizard.Reset()
	s.Favorites.Forget(s.UserID)
}
