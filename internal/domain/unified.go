package domain

import (
	"encoding/json"
	"time"
)

type ItemType string

const (
	ItemEvent  ItemType = "event"
	ItemMeetup ItemType = "meetup"
)

// UnifiedItem is an Event or a Meetup behind one tagged shape. Build it with
// EventItem or MeetupItem; the zero value is an empty item of no type.
type UnifiedItem struct {
	typ    ItemType
	event  *Event
	meetup *Meetup
}

func EventItem(e Event) UnifiedItem {
	return UnifiedItem{typ: ItemEvent, event: &e}
}

func MeetupItem(m Meetup) UnifiedItem {
	return UnifiedItem{typ: ItemMeetup, meetup: &m}
}

// Type is the tag of the payload, or "" for the zero value.
func (u UnifiedItem) Type() ItemType { return u.typ }

func (u UnifiedItem) ID() string {
	switch {
	case u.event != nil:
		return u.event.ID
	case u.meetup != nil:
		return u.meetup.ID
	}
	return ""
}

// EntityID lets derived item lists live in an entity cache.
func (u UnifiedItem) EntityID() string { return u.ID() }

func (u UnifiedItem) Title() string {
	switch {
	case u.event != nil:
		return u.event.Title
	case u.meetup != nil:
		return u.meetup.Title
	}
	return ""
}

func (u UnifiedItem) StartsAt() time.Time {
	switch {
	case u.event != nil:
		return u.event.StartsAt
	case u.meetup != nil:
		return u.meetup.StartsAt
	}
	return time.Time{}
}

// Event returns the event payload; ok is false for meetups.
func (u UnifiedItem) Event() (Event, bool) {
	if u.event == nil {
		return Event{}, false
	}
	return *u.event, true
}

// Meetup returns the meetup payload; ok is false for events.
func (u UnifiedItem) Meetup() (Meetup, bool) {
	if u.meetup == nil {
		return Meetup{}, false
	}
	return *u.meetup, true
}

// Online reports whether the item takes place online. Only meetups do.
func (u UnifiedItem) Online() bool {
	return u.typ == ItemMeetup
}

func (u UnifiedItem) MarshalJSON() ([]byte, error) {
	switch {
	case u.event != nil:
		return json.Marshal(struct {
			Event
			Type ItemType `json:"type"`
		}{*u.event, u.typ})
	case u.meetup != nil:
		return json.Marshal(struct {
			Meetup
			Type ItemType `json:"type"`
		}{*u.meetup, u.typ})
	}
	return []byte("null"), nil
}
