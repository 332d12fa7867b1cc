package entitycache

import "time"

// State is the lifecycle state of a cache entry as seen by a reader.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateStale   State = "stale"
	StateError   State = "error"
)

// Entry is a snapshot of one cached list or detail record.
//
// HasData is false for placeholders and for details the remote reported as
// absent. A stale entry still carries the last known data.
type Entry[V any] struct {
	Data      V
	HasData   bool
	FetchedAt time.Time
	State     State
	Err       error
}

type slot[V any] struct {
	data      V
	hasData   bool
	fetched   bool
	fetchedAt time.Time
	err       error
	invalid   bool

	// gen changes on every invalidate and direct write; a fetch started
	// under an older gen never lands.
	gen        uint64
	loading    bool
	loadingGen uint64
}

func (s *slot[V]) entry(state State) Entry[V] {
	return Entry[V]{
		Data:      s.data,
		HasData:   s.hasData,
		FetchedAt: s.fetchedAt,
		State:     state,
		Err:       s.err,
	}
}

func (s *slot[V]) inflight() bool {
	return s.loading && s.loadingGen == s.gen
}
