package httpgin

import (
	"github.com/shopspring/decimal"

	"github.com/kirinyoku/meetly/internal/booking"
	"github.com/kirinyoku/meetly/internal/domain"
)

type OpenSessionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type ToggleFavoriteRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

type ToggleFavoriteResponse struct {
	ItemID   string `json:"item_id"`
	Favorite bool   `json:"favorite"`
}

type AddSeatRequest struct {
	Row    *int            `json:"row" binding:"required"`
	Column *int            `json:"column" binding:"required"`
	Type   string          `json:"type"`
	Price  decimal.Decimal `json:"price"`
}

func (r AddSeatRequest) candidate() booking.Candidate {
	return booking.Candidate{Row: *r.Row, Column: *r.Column, Type: r.Type, Price: r.Price}
}

type BookingDetailsRequest struct {
	EventID       string          `json:"event_id"`
	Contact       booking.Contact `json:"contact"`
	PaymentMethod string          `json:"payment_method"`
}

type RemoveSeatResponse struct {
	Removed int `json:"removed"`
}

type TotalResponse struct {
	Seats int             `json:"seats"`
	Total decimal.Decimal `json:"total_price"`
}

type WizardRequest struct {
	Value string `json:"value"`
}

type WizardResponse struct {
	Step   string            `json:"step"`
	Values map[string]string `json:"values"`
}

type WizardCompleteResponse struct {
	Step   string        `json:"step"`
	Meetup domain.Meetup `json:"meetup"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
