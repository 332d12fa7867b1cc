package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kirinyoku/meetly/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// Subscriber delivers entity change messages published by any process.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, kind domain.Kind, id string)) error
}

// Manager tracks the open sessions of this process.
type Manager struct {
	deps  Deps
	newID func() string

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session for userID and seeds its favorite set.
func (m *Manager) Open(ctx context.Context, userID string) (*Session, error) {
	const op = "session.Manager.Open"

	if userID == "" {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrUnauthenticated)
	}

	s := newSession(m.newID(), userID, m.deps)
	s.load(ctx)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if m.deps.Monitor != nil {
		m.deps.Monitor.SessionOpened()
	}
	s.logger.Info("session opened")

	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close tears the session down. Closing an unknown id returns
// ErrSessionNotFound.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.Close()
	if m.deps.Notices != nil {
		m.deps.Notices.Forget(s.UserID)
	}
	if m.deps.Monitor != nil {
		m.deps.Monitor.SessionClosed()
	}
	s.logger.Info("session closed")

	return nil
}

func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Close(id)
	}
}

func (m *Manager) snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Dispatch applies a remote change message to every open session.
func (m *Manager) Dispatch(ctx context.Context, kind domain.Kind, id string) {
	for _, s := range m.snapshot() {
		s.applyRemoteChange(ctx, kind, id)
	}
}

// Run follows entity change messages until ctx is done.
func (m *Manager) Run(ctx context.Context, sub Subscriber) error {
	err := sub.Subscribe(ctx, m.Dispatch)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
