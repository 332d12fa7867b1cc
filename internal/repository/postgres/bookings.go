package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/remote"
	"github.com/kirinyoku/meetly/internal/repository"
)

const bookingColumns = `id, user_id, event_id, full_name, email, phone,
	payment_method, selected_seats, total_price, status, created_at`

var bookingFilterColumns = map[string]string{
	"user_id":  "user_id",
	"event_id": "event_id",
	"status":   "status",
}

var bookingWritable = map[string]bool{
	"full_name":      true,
	"email":          true,
	"phone":          true,
	"payment_method": true,
	"status":         true,
}

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.EventID, &b.FullName, &b.Email, &b.Phone,
		&b.PaymentMethod, &b.Seats, &b.TotalPrice, &b.Status, &b.CreatedAt,
	)
	return b, err
}

// FetchList returns bookings matching filter, newest first.
func (r *BookingRepo) FetchList(ctx context.Context, filter domain.Filter) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.FetchList"

	where, args, err := buildWhere(filter, bookingFilterColumns, "")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+where+` ORDER BY created_at DESC, id`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, b)
	}

	return out, wrapDBErr(op, rows.Err())
}

func (r *BookingRepo) FetchDetail(ctx context.Context, id string) (domain.Booking, bool, error) {
	const op = "postgres.BookingRepo.FetchDetail"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, false, nil
	}
	if err != nil {
		return domain.Booking{}, false, wrapDBErr(op, err)
	}

	return b, true, nil
}

// Create stores a booking. Seats are kept as a jsonb array in selection
// order.
func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	const op = "postgres.BookingRepo.Create"

	if len(b.Seats) == 0 {
		return domain.Booking{}, wrapDBErr(op, repository.ErrInvalid)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domain.BookingPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	out, err := scanBooking(r.handle().QueryRow(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+bookingColumns,
		b.ID, b.UserID, b.EventID, b.FullName, b.Email, b.Phone,
		b.PaymentMethod, b.Seats, b.TotalPrice, b.Status, b.CreatedAt,
	))
	if err != nil {
		return domain.Booking{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *BookingRepo) Update(ctx context.Context, id string, patch remote.Patch) (domain.Booking, error) {
	const op = "postgres.BookingRepo.Update"

	q, args, err := buildUpdate("bookings", id, patch, bookingWritable, bookingColumns)
	if err != nil {
		return domain.Booking{}, wrapDBErr(op, err)
	}

	out, err := scanBooking(r.handle().QueryRow(ctx, q, args...))
	if err != nil {
		return domain.Booking{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *BookingRepo) Remove(ctx context.Context, id string) error {
	const op = "postgres.BookingRepo.Remove"

	tag, err := r.handle().Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) removeAllForUser(ctx context.Context, userID string) error {
	_, err := r.handle().Exec(ctx, `DELETE FROM bookings WHERE user_id = $1`, userID)
	return err
}
