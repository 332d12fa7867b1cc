// Package favorites keeps each user's favorite set in step with the remote
// favorites table.
package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/notify"
	"github.com/kirinyoku/meetly/internal/remote"
)

// State is the reconciliation state of one item for one user.
type State int

const (
	StateAbsent State = iota
	StatePending
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePending:
		return "pending"
	case StatePresent:
		return "present"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Resolver looks an item up by id. unified.View satisfies it.
type Resolver interface {
	Get(ctx context.Context, id string) (domain.UnifiedItem, bool, error)
}

type Metrics interface {
	TrackFavoriteToggle(add bool, err error)
}

type Options struct {
	Notifier notify.Notifier
	Metrics  Metrics
	Logger   *slog.Logger
	// OnChange runs after a toggle for userID is confirmed by the remote.
	OnChange func(ctx context.Context, userID string)
}

type set struct {
	items   map[string]domain.UnifiedItem
	order   []string
	pending map[string]int
}

func newSet() *set {
	return &set{
		items:   make(map[string]domain.UnifiedItem),
		pending: make(map[string]int),
	}
}

func (s *set) add(it domain.UnifiedItem) {
	if _, ok := s.items[it.ID()]; !ok {
		s.order = append(s.order, it.ID())
	}
	s.items[it.ID()] = it
}

func (s *set) remove(id string) {
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Reconciler owns the local favorite sets. The local set only changes once
// the remote confirms a write, so it always mirrors the last confirmed
// remote state.
type Reconciler struct {
	remote   remote.Favorites
	notifier notify.Notifier
	metrics  Metrics
	logger   *slog.Logger
	onChange func(ctx context.Context, userID string)

	mu   sync.Mutex
	sets map[string]*set
}

func New(r remote.Favorites, opts Options) *Reconciler {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Reconciler{
		remote:   r,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("component", "favorites"),
		onChange: opts.OnChange,
		sets:     make(map[string]*set),
	}
}

func (r *Reconciler) setLocked(userID string) *set {
	s, ok := r.sets[userID]
	if !ok {
		s = newSet()
		r.sets[userID] = s
	}
	return s
}

// Toggle flips the favorite state of item for userID with exactly one remote
// call and reports whether the item is a favorite afterwards.
//
// Returns:
//   - bool: membership after the call. On failure this is the unchanged
//     pre-toggle membership.
//   - error: domain.ErrUnauthenticated when userID is blank, or a
//     *domain.RemoteError when the remote rejected the write.
func (r *Reconciler) Toggle(ctx context.Context, item domain.UnifiedItem, userID string) (bool, error) {
	const op = "favorites.Reconciler.Toggle"

	if userID == "" {
		return false, fmt.Errorf("%s: %w", op, domain.ErrUnauthenticated)
	}

	id := item.ID()

	r.mu.Lock()
	s := r.setLocked(userID)
	_, present := s.items[id]
	s.pending[id]++
	r.mu.Unlock()

	var err error
	if present {
		err = r.remote.DeleteFavorite(ctx, userID, id)
	} else {
		err = r.remote.InsertFavorite(ctx, userID, id, item.Online())
	}

	r.mu.Lock()
	s = r.setLocked(userID)
	if s.pending[id]--; s.pending[id] <= 0 {
		delete(s.pending, id)
	}
	if err == nil {
		// A later confirmation overrides an earlier one regardless of which
		// call was issued first.
		if present {
			s.remove(id)
		} else {
			s.add(item)
		}
	}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.TrackFavoriteToggle(!present, err)
	}

	if err != nil {
		r.logger.Warn("favorite toggle failed", "user_id", userID, "item_id", id, "error", err)
		verb := "add"
		if present {
			verb = "remove"
		}
		r.notifier.Notify(ctx, userID,
			fmt.Sprintf("Could not %s favorite. Please try again.", verb),
			notify.SeverityError,
		)
		return present, &domain.RemoteError{Op: op, Err: err}
	}

	if r.onChange != nil {
		r.onChange(ctx, userID)
	}

	return !present, nil
}

// State reports the reconciliation state of itemID for userID.
func (r *Reconciler) State(userID, itemID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sets[userID]
	if !ok {
		return StateAbsent
	}
	if s.pending[itemID] > 0 {
		return StatePending
	}
	if _, ok := s.items[itemID]; ok {
		return StatePresent
	}
	return StateAbsent
}

// IsFavorite reports confirmed membership, ignoring in-flight toggles.
func (r *Reconciler) IsFavorite(userID, itemID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sets[userID]
	if !ok {
		return false
	}
	_, ok = s.items[itemID]
	return ok
}

// Items returns the favorites of userID in the order they were confirmed.
func (r *Reconciler) Items(userID string) []domain.UnifiedItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sets[userID]
	if !ok {
		return nil
	}

	out := make([]domain.UnifiedItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Hydrate replaces the confirmed set of userID with items.
func (r *Reconciler) Hydrate(userID string, items []domain.UnifiedItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := newSet()
	if old, ok := r.sets[userID]; ok {
		s.pending = old.pending
	}
	for _, it := range items {
		s.add(it)
	}
	r.sets[userID] = s
}

// Load seeds the set of userID from the remote favorites table, resolving
// each marker through resolver. Markers whose item no longer exists are
// skipped.
func (r *Reconciler) Load(ctx context.Context, userID string, resolver Resolver) error {
	const op = "favorites.Reconciler.Load"

	if userID == "" {
		return fmt.Errorf("%s: %w", op, domain.ErrUnauthenticated)
	}

	markers, err := r.remote.ListFavorites(ctx, userID)
	if err != nil {
		return &domain.RemoteError{Op: op, Err: err}
	}

	items := make([]domain.UnifiedItem, 0, len(markers))
	for _, m := range markers {
		it, found, err := resolver.Get(ctx, m.ItemID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !found {
			r.logger.Debug("skipping favorite of missing item", "user_id", userID, "item_id", m.ItemID)
			continue
		}
		items = append(items, it)
	}

	r.Hydrate(userID, items)
	return nil
}

// Forget drops the local set of userID.
func (r *Reconciler) Forget(userID string) {
	r.mu.Lock()
	delete(r.sets, userID)
	r.mu.Unlock()
}
