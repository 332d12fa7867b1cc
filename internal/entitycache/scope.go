package entitycache

import "github.com/kirinyoku/meetly/internal/domain"

// Scope selects the entries an invalidation applies to.
type Scope struct {
	lists   bool
	details bool
	listKey string
	id      string
}

// Lists matches every list entry of the kind.
func Lists() Scope { return Scope{lists: true} }

// List matches the list entry for one filter.
func List(f domain.Filter) Scope { return Scope{lists: true, listKey: f.Key()} }

// Details matches every detail entry of the kind.
func Details() Scope { return Scope{details: true} }

// Detail matches one detail entry. A blank id matches nothing.
func Detail(id string) Scope {
	if id == "" {
		return Scope{}
	}
	return Scope{details: true, id: id}
}

// All matches every entry of the kind.
func All() Scope { return Scope{lists: true, details: true} }

func (s Scope) matchList(key string) bool {
	return s.lists && (s.listKey == "" || s.listKey == key)
}

func (s Scope) matchDetail(id string) bool {
	return s.details && (s.id == "" || s.id == id)
}
