package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/notify"
	"github.com/kirinyoku/meetly/internal/remote"
	redisrepo "github.com/kirinyoku/meetly/internal/repository/redis"
	"github.com/kirinyoku/meetly/internal/session"
)

type memRemote[T domain.Entity] struct {
	mu     sync.Mutex
	items  map[string]T
	order  []string
	seq    int
	withID func(T, string) T
}

func newMem[T domain.Entity](withID func(T, string) T, items ...T) *memRemote[T] {
	m := &memRemote[T]{items: make(map[string]T), withID: withID}
	for _, it := range items {
		m.items[it.EntityID()] = it
		m.order = append(m.order, it.EntityID())
	}
	return m
}

func (m *memRemote[T]) FetchList(context.Context, domain.Filter) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memRemote[T]) FetchDetail(_ context.Context, id string) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok, nil
}

func (m *memRemote[T]) Create(_ context.Context, v T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	v = m.withID(v, fmt.Sprintf("new-%d", m.seq))
	m.items[v.EntityID()] = v
	m.order = append(m.order, v.EntityID())
	return v, nil
}

func (m *memRemote[T]) Update(_ context.Context, id string, _ remote.Patch) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id], nil
}

func (m *memRemote[T]) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memFavorites struct {
	mu      sync.Mutex
	markers map[string]bool
}

func (f *memFavorites) InsertFavorite(_ context.Context, _, itemID string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers[itemID] = true
	return nil
}

func (f *memFavorites) DeleteFavorite(_ context.Context, _, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.markers, itemID)
	return nil
}

func (f *memFavorites) ListFavorites(context.Context, string) ([]domain.FavoriteMarker, error) {
	return nil, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 30 * time.Second, nil
}

type memIdem struct {
	mu   sync.Mutex
	vals map[string]string
}

func (m *memIdem) Begin(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		m.vals[key] = ""
		return "", false, nil
	}
	if v == "" {
		return "", false, redisrepo.ErrIdempotencyInProgress
	}
	return v, true, nil
}

func (m *memIdem) Complete(_ context.Context, key, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = payload
	return nil
}

func (m *memIdem) Abort(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

type server struct {
	t       *testing.T
	handler http.Handler
	sid     string
}

func newServer(t *testing.T, limiter Limiter) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notices := notify.NewBuffer(8)

	manager := session.NewManager(session.Deps{
		Remotes: session.Remotes{
			Events: newMem(func(e domain.Event, id string) domain.Event { e.ID = id; return e },
				domain.Event{ID: "e1", Title: "Jazz night"}),
			Meetups: newMem(func(m domain.Meetup, id string) domain.Meetup { m.ID = id; return m },
				domain.Meetup{ID: "m1", Title: "Go talks"}),
			Bookings:  newMem(func(b domain.Booking, id string) domain.Booking { b.ID = id; return b }),
			Users:     newMem(func(u domain.User, id string) domain.User { u.ID = id; return u }),
			Favorites: &memFavorites{markers: make(map[string]bool)},
		},
		Notices: notices,
		Logger:  logger,
	})

	return &server{
		t: t,
		handler: NewRouter(Deps{
			Sessions: manager,
			Notices:  notices,
			Limiter:  limiter,
			Idem:     &memIdem{vals: make(map[string]string)},
			Logger:   logger,
		}),
	}
}

func (s *server) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if s.sid != "" {
		req.Header.Set(headerSessionID, s.sid)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *server) signIn(userID string) {
	s.t.Helper()

	w := s.do(http.MethodPost, "/sessions", OpenSessionRequest{UserID: userID})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var resp OpenSessionResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	s.sid = resp.SessionID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestRouter_RequiresSession(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(http.MethodGet, "/items", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.sid = "unknown"
	w = s.do(http.MethodGet, "/items", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ItemsAreTaggedAndCacheable(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodGet, "/items", nil)
	require.Equal(t, http.StatusOK, w.Code)

	items := decode[[]map[string]any](t, w)
	require.Len(t, items, 2)
	assert.Equal(t, "e1", items[0]["id"])
	assert.Equal(t, "event", items[0]["type"])
	assert.Equal(t, "m1", items[1]["id"])
	assert.Equal(t, "meetup", items[1]["type"])

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	w = s.do(http.MethodGet, "/items", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestRouter_EntityDetailAndNotFound(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodGet, "/events/e1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", w.Header().Get(headerCacheState))
	assert.Equal(t, "Jazz night", decode[domain.Event](t, w).Title)

	w = s.do(http.MethodGet, "/events/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CreateEventIsVisibleInList(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]domain.Event](t, w), 1)

	w = s.do(http.MethodPost, "/events", domain.Event{Title: "Blues"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Event](t, w)

	assert.Eventually(t, func() bool {
		w := s.do(http.MethodGet, "/events", nil)
		return w.Code == http.StatusOK &&
			w.Header().Get("X-Cache-State") == "idle" &&
			len(decode[[]domain.Event](t, w)) == 2
	}, time.Second, 5*time.Millisecond)

	w = s.do(http.MethodDelete, "/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_InvalidatedListIsServedStaleAtOnce(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", w.Header().Get("X-Cache-State"))

	w = s.do(http.MethodPost, "/events", domain.Event{Title: "Blues"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stale", w.Header().Get("X-Cache-State"))
	assert.Len(t, decode[[]domain.Event](t, w), 1)

	assert.Eventually(t, func() bool {
		w := s.do(http.MethodGet, "/events", nil)
		return w.Code == http.StatusOK &&
			w.Header().Get("X-Cache-State") == "idle" &&
			len(decode[[]domain.Event](t, w)) == 2
	}, time.Second, 5*time.Millisecond)

	w = s.do(http.MethodGet, "/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Cache-State"))
}

func TestRouter_BookingFlow(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	seat := map[string]any{"row": 0, "column": 4, "type": "VIP", "price": 10}

	w := s.do(http.MethodPost, "/booking/seats", seat)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sel := decode[domain.SeatSelection](t, w)
	assert.Equal(t, "A5", sel.Seat)
	assert.Equal(t, "12", sel.Price.String())

	w = s.do(http.MethodPost, "/booking/seats", seat)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/booking/total", nil)
	require.Equal(t, http.StatusOK, w.Code)
	total := decode[TotalResponse](t, w)
	assert.Equal(t, 1, total.Seats)
	assert.Equal(t, "12", total.Total.String())

	w = s.do(http.MethodPost, "/booking/checkout", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "event_id", decode[ErrorResponse](t, w).Field)

	w = s.do(http.MethodPut, "/booking/details", map[string]any{
		"event_id":       "e1",
		"contact":        map[string]string{"full_name": "Ada", "email": "ada@example.com"},
		"payment_method": "card",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/booking/checkout", nil, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[domain.Booking](t, w)
	assert.Equal(t, domain.BookingPending, first.Status)

	w = s.do(http.MethodPost, "/booking/checkout", nil, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, first.ID, decode[domain.Booking](t, w).ID)

	w = s.do(http.MethodGet, "/booking", nil)
	assert.Empty(t, decode[map[string]any](t, w)["selected_seats"])
}

func TestRouter_CheckoutWithoutSeatsIsBlocked(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodPost, "/booking/checkout", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "selected_seats", resp.Field)
	assert.Equal(t, "Please select at least one seat", resp.Error)
}

func TestRouter_RemoveSeat(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodPost, "/booking/seats", map[string]any{"row": 1, "column": 2, "price": 5})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodDelete, "/booking/seats/1-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[RemoveSeatResponse](t, w).Removed)

	w = s.do(http.MethodDelete, "/booking/seats/B3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ToggleFavorite(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodPost, "/favorites/toggle", ToggleFavoriteRequest{ItemID: "m1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[ToggleFavoriteResponse](t, w).Favorite)

	w = s.do(http.MethodGet, "/favorites", nil)
	favs := decode[[]map[string]any](t, w)
	require.Len(t, favs, 1)
	assert.Equal(t, "meetup", favs[0]["type"])

	w = s.do(http.MethodPost, "/favorites/toggle", ToggleFavoriteRequest{ItemID: "m1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[ToggleFavoriteResponse](t, w).Favorite)

	w = s.do(http.MethodGet, "/favorites", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", w.Header().Get("X-Cache-State"))
	assert.Empty(t, decode[[]map[string]any](t, w))

	w = s.do(http.MethodPost, "/favorites/toggle", ToggleFavoriteRequest{ItemID: "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ToggleFavoriteRateLimited(t *testing.T) {
	s := newServer(t, denyAll{})
	s.signIn("u1")

	w := s.do(http.MethodPost, "/favorites/toggle", ToggleFavoriteRequest{ItemID: "e1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "31", w.Header().Get("Retry-After"))
}

func TestRouter_MeetupWizard(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodPost, "/meetups/wizard", WizardRequest{Value: ""})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "name", decode[ErrorResponse](t, w).Field)

	w = s.do(http.MethodPost, "/meetups/wizard", WizardRequest{Value: "Gophers"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "date", decode[WizardResponse](t, w).Step)

	w = s.do(http.MethodPost, "/meetups/wizard/back", nil)
	assert.Equal(t, "name", decode[WizardResponse](t, w).Step)

	for _, v := range []string{"Gophers", "2026-11-03T18:00:00Z", "Lightning talks"} {
		w = s.do(http.MethodPost, "/meetups/wizard", WizardRequest{Value: v})
	}
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	done := decode[WizardCompleteResponse](t, w)
	assert.Equal(t, "Gophers", done.Meetup.Title)
	assert.Equal(t, "u1", done.Meetup.HostID)

	w = s.do(http.MethodGet, "/meetups/wizard", nil)
	assert.Equal(t, "name", decode[WizardResponse](t, w).Step)
}

func TestRouter_SignOut(t *testing.T) {
	s := newServer(t, nil)
	s.signIn("u1")

	w := s.do(http.MethodDelete, "/sessions/"+s.sid, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/booking", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
