package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/meetly/internal/booking"
	"github.com/kirinyoku/meetly/internal/domain"
)

// Creator stores a booking. mutation.Service[domain.Booking] satisfies it.
type Creator interface {
	Create(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

// Sender forwards a stored booking to checkout.
type Sender interface {
	Publish(ctx context.Context, b domain.Booking) error
}

// Submitter turns a booking draft into a pending booking and forwards it to
// checkout.
type Submitter struct {
	userID   string
	bookings Creator
	sender   Sender
	logger   *slog.Logger
}

func NewSubmitter(userID string, bookings Creator, sender Sender, logger *slog.Logger) *Submitter {
	return &Submitter{
		userID:   userID,
		bookings: bookings,
		sender:   sender,
		logger:   logger.With("component", "checkout.submitter", "user_id", userID),
	}
}

// Submit creates the booking and publishes it. A failed publish is logged
// but does not fail the submission: the booking is already stored as
// pending and resubmitting would duplicate it.
func (s *Submitter) Submit(ctx context.Context, d booking.Draft) (domain.Booking, error) {
	const op = "checkout.Submitter.Submit"

	if s.userID == "" {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, domain.ErrUnauthenticated)
	}

	b, err := s.bookings.Create(ctx, domain.Booking{
		UserID:        s.userID,
		EventID:       d.EventID,
		FullName:      d.Contact.FullName,
		Email:         d.Contact.Email,
		Phone:         d.Contact.Phone,
		PaymentMethod: d.PaymentMethod,
		Seats:         d.Seats,
		TotalPrice:    d.TotalPrice,
		Status:        domain.BookingPending,
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.sender != nil {
		if err := s.sender.Publish(ctx, b); err != nil {
			s.logger.Error("failed to hand booking to checkout", "booking_id", b.ID, "error", err)
		}
	}

	return b, nil
}
