// Package booking holds the in-progress booking of one session: the selected
// seats with their derived labels and prices, contact and payment details,
// and the hand-off to checkout.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/meetly/internal/domain"
)

// DuplicatePolicy decides what AddSeat does with a seat that is already
// selected.
type DuplicatePolicy int

const (
	// RejectDuplicates fails AddSeat with ErrSeatAlreadySelected.
	RejectDuplicates DuplicatePolicy = iota
	// AllowDuplicates appends the seat again; RemoveSeat drops every copy.
	AllowDuplicates
)

type Contact struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Draft is a read-only snapshot of the workflow.
type Draft struct {
	EventID       string                 `json:"event_id"`
	Contact       Contact                `json:"contact"`
	PaymentMethod string                 `json:"payment_method"`
	Seats         []domain.SeatSelection `json:"selected_seats"`
	TotalPrice    decimal.Decimal        `json:"total_price"`
}

// Submitter receives the draft at checkout.
type Submitter interface {
	Submit(ctx context.Context, draft Draft) (domain.Booking, error)
}

type Metrics interface {
	TrackSeatOperation(operation string, err error)
}

type Options struct {
	Duplicates DuplicatePolicy
	Metrics    Metrics
	Logger     *slog.Logger
}

// Workflow is owned by one booking session. Nothing else mutates it.
type Workflow struct {
	policy  DuplicatePolicy
	metrics Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	eventID string
	contact Contact
	payment string
	seats   []domain.SeatSelection
}

func NewWorkflow(opts Options) *Workflow {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Workflow{
		policy:  opts.Duplicates,
		metrics: opts.Metrics,
		logger:  opts.Logger.With("component", "booking"),
	}
}

// AddSeat prices c, labels it and appends it to the selection.
//
// Returns:
//   - domain.SeatSelection: the stored selection.
//   - error: ErrInvalidSeat for coordinates outside the seat map or a
//     negative price, or ErrSeatAlreadySelected when the seat is selected
//     and duplicates are rejected.
func (w *Workflow) AddSeat(c Candidate) (domain.SeatSelection, error) {
	const op = "booking.Workflow.AddSeat"

	sel, err := Selection(c)
	if err != nil {
		w.track("add", err)
		return domain.SeatSelection{}, fmt.Errorf("%s: %w", op, err)
	}

	w.mu.Lock()
	if w.policy == RejectDuplicates && w.indexLocked(sel.Row, sel.Column) >= 0 {
		w.mu.Unlock()
		w.track("add", ErrSeatAlreadySelected)
		return domain.SeatSelection{}, fmt.Errorf("%s: %w", op, ErrSeatAlreadySelected)
	}
	w.seats = append(w.seats, sel)
	w.mu.Unlock()

	w.track("add", nil)
	return sel, nil
}

// RemoveSeat drops every selection whose identity matches seatID
// ("{row}-{column}") and returns how many were removed. An unknown seat is
// not an error.
func (w *Workflow) RemoveSeat(seatID string) (int, error) {
	const op = "booking.Workflow.RemoveSeat"

	row, column, err := ParseSeatID(seatID)
	if err != nil {
		w.track("remove", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	w.mu.Lock()
	kept := w.seats[:0]
	removed := 0
	for _, s := range w.seats {
		if s.Row == row && s.Column == column {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	w.seats = kept
	w.mu.Unlock()

	w.track("remove", nil)
	return removed, nil
}

// Clear resets the workflow to an empty draft.
func (w *Workflow) Clear() {
	w.mu.Lock()
	w.eventID = ""
	w.contact = Contact{}
	w.payment = ""
	w.seats = nil
	w.mu.Unlock()

	w.track("clear", nil)
}

// TotalPrice sums the selected seat prices. It is computed on every call.
func (w *Workflow) TotalPrice() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()

	return totalLocked(w.seats)
}

func totalLocked(seats []domain.SeatSelection) decimal.Decimal {
	total := decimal.Zero
	for _, s := range seats {
		total = total.Add(s.Price)
	}
	return total
}

// Seats returns the selection in the order it was made.
func (w *Workflow) Seats() []domain.SeatSelection {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]domain.SeatSelection, len(w.seats))
	copy(out, w.seats)
	return out
}

func (w *Workflow) SetEvent(eventID string) {
	w.mu.Lock()
	w.eventID = eventID
	w.mu.Unlock()
}

func (w *Workflow) SetContact(c Contact) {
	w.mu.Lock()
	w.contact = c
	w.mu.Unlock()
}

func (w *Workflow) SetPayment(method string) {
	w.mu.Lock()
	w.payment = method
	w.mu.Unlock()
}

func (w *Workflow) Snapshot() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()

	seats := make([]domain.SeatSelection, len(w.seats))
	copy(seats, w.seats)

	return Draft{
		EventID:       w.eventID,
		Contact:       w.contact,
		PaymentMethod: w.payment,
		Seats:         seats,
		TotalPrice:    totalLocked(seats),
	}
}

// ReadyForCheckout returns a *domain.ValidationError describing the first
// unmet precondition, or nil.
func (w *Workflow) ReadyForCheckout() error {
	return validate(w.Snapshot())
}

func validate(d Draft) error {
	switch {
	case len(d.Seats) == 0:
		return &domain.ValidationError{Field: "selected_seats", Message: "Please select at least one seat"}
	case d.EventID == "":
		return &domain.ValidationError{Field: "event_id", Message: "Please choose an event"}
	case strings.TrimSpace(d.Contact.FullName) == "":
		return &domain.ValidationError{Field: "full_name", Message: "Please enter your full name"}
	case strings.TrimSpace(d.Contact.Email) == "":
		return &domain.ValidationError{Field: "email", Message: "Please enter your email"}
	}
	return nil
}

// Submit hands a snapshot to sub and clears the workflow once sub accepts
// it. A failed submission leaves the draft as it was.
func (w *Workflow) Submit(ctx context.Context, sub Submitter) (domain.Booking, error) {
	const op = "booking.Workflow.Submit"

	draft := w.Snapshot()
	if err := validate(draft); err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	b, err := sub.Submit(ctx, draft)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	w.Clear()
	w.logger.Info("booking submitted", "booking_id", b.ID, "seats", len(draft.Seats))

	return b, nil
}

func (w *Workflow) track(operation string, err error) {
	if w.metrics != nil {
		w.metrics.TrackSeatOperation(operation, err)
	}
}

// indexLocked returns the position of the seat at (row, column), or -1.
func (w *Workflow) indexLocked(row, column int) int {
	for i, s := range w.seats {
		if s.Row == row && s.Column == column {
			return i
		}
	}
	return -1
}
