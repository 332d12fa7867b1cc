package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind names a remotely-sourced record type.
type Kind string

const (
	KindEvent    Kind = "events"
	KindMeetup   Kind = "meetups"
	KindBooking  Kind = "bookings"
	KindUser     Kind = "users"
	KindFavorite Kind = "favorites"
)

// Noun returns the singular name used in user-facing messages.
func (k Kind) Noun() string {
	switch k {
	case KindEvent:
		return "event"
	case KindMeetup:
		return "meetup"
	case KindBooking:
		return "booking"
	case KindUser:
		return "profile"
	case KindFavorite:
		return "favorite"
	}
	return string(k)
}

// Entity is any cached record with a backend-issued identifier.
type Entity interface {
	EntityID() string
}

type Event struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	ImageURL    string          `json:"image_url"`
	OrganizerID string          `json:"organizer_id"`
	Price       decimal.Decimal `json:"price"`
	StartsAt    time.Time       `json:"starts_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (e Event) EntityID() string { return e.ID }

type Meetup struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	MeetingURL  string    `json:"meeting_url"`
	ImageURL    string    `json:"image_url"`
	HostID      string    `json:"host_id"`
	Capacity    int       `json:"capacity"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m Meetup) EntityID() string { return m.ID }

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	EventID       string          `json:"event_id"`
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	PaymentMethod string          `json:"payment_method"`
	Seats         []SeatSelection `json:"selected_seats"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        BookingStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (b Booking) EntityID() string { return b.ID }

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) EntityID() string { return u.ID }

// FavoriteMarker is one row of the remote favorites table.
type FavoriteMarker struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Online    bool      `json:"online"`
	CreatedAt time.Time `json:"created_at"`
}

func (f FavoriteMarker) EntityID() string { return f.ID }

// SeatSelection is one chosen seat. Identity is (Row, Column); Seat is the
// display label derived from it.
type SeatSelection struct {
	Row    int             `json:"row"`
	Column int             `json:"column"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
	Seat   string          `json:"seat"`
}
