package domain

import "net/url"

// Filter narrows a list read. The zero value matches everything.
type Filter map[string]string

// Key returns a canonical string for f, independent of map ordering. Keys and
// values are query-escaped so a value can never pose as another pair.
func (f Filter) Key() string {
	if len(f) == 0 {
		return "*"
	}

	q := make(url.Values, len(f))
	for k, v := range f {
		q.Set(k, v)
	}
	return q.Encode()
}
