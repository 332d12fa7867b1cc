package notify

import (
	"context"
	"sync"
	"time"
)

const DefaultBufferSize = 32

// Buffer keeps the most recent notices per user until the UI drains them.
// Older notices are overwritten once a user's buffer is full.
type Buffer struct {
	size int
	now  func() time.Time

	mu    sync.Mutex
	rings map[string]*ring
}

type ring struct {
	items []Notice
	next  int
	full  bool
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{
		size:  size,
		now:   time.Now,
		rings: make(map[string]*ring),
	}
}

func (b *Buffer) Notify(_ context.Context, userID, message string, severity Severity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rings[userID]
	if !ok {
		r = &ring{items: make([]Notice, b.size)}
		b.rings[userID] = r
	}

	r.items[r.next] = Notice{Message: message, Severity: severity, At: b.now()}
	r.next = (r.next + 1) % b.size
	if r.next == 0 {
		r.full = true
	}
}

// Drain returns the buffered notices of userID, oldest first, and empties
// the buffer.
func (b *Buffer) Drain(userID string) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rings[userID]
	if !ok {
		return nil
	}
	delete(b.rings, userID)

	if !r.full {
		out := make([]Notice, r.next)
		copy(out, r.items[:r.next])
		return out
	}

	out := make([]Notice, 0, b.size)
	out = append(out, r.items[r.next:]...)
	out = append(out, r.items[:r.next]...)
	return out
}

// Forget drops everything buffered for userID.
func (b *Buffer) Forget(userID string) {
	b.mu.Lock()
	delete(b.rings, userID)
	b.mu.Unlock()
}
