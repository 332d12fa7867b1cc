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

const eventColumns = `id, title, description, category, location, image_url,
	organizer_id, price, starts_at, created_at`

var eventFilterColumns = map[string]string{
	"category":     "category",
	"location":     "location",
	"organizer_id": "organizer_id",
}

var eventWritable = map[string]bool{
	"title":       true,
	"description": true,
	"category":    true,
	"location":    true,
	"image_url":   true,
	"price":       true,
	"starts_at":   true,
}

type EventRepo struct {
	pool *pgxpool.Pool
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &e.ImageURL,
		&e.OrganizerID, &e.Price, &e.StartsAt, &e.CreatedAt,
	)
	return e, err
}

// FetchList returns events matching filter ordered by start time.
//
// Supported filter keys: category, location, organizer_id, search (title),
// upcoming ("true").
func (r *EventRepo) FetchList(ctx context.Context, filter domain.Filter) ([]domain.Event, error) {
	const op = "postgres.EventRepo.FetchList"

	where, args, err := buildWhere(filter, eventFilterColumns, "title")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events`+where+` ORDER BY starts_at, id`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, e)
	}

	return out, wrapDBErr(op, rows.Err())
}

func (r *EventRepo) FetchDetail(ctx context.Context, id string) (domain.Event, bool, error) {
	const op = "postgres.EventRepo.FetchDetail"

	e, err := scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, wrapDBErr(op, err)
	}

	return e, true, nil
}

func (r *EventRepo) Create(ctx context.Context, e domain.Event) (domain.Event, error) {
	const op = "postgres.EventRepo.Create"

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	out, err := scanEvent(r.pool.QueryRow(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+eventColumns,
		e.ID, e.Title, e.Description, e.Category, e.Location, e.ImageURL,
		e.OrganizerID, e.Price, e.StartsAt, e.CreatedAt,
	))
	if err != nil {
		return domain.Event{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *EventRepo) Update(ctx context.Context, id string, patch remote.Patch) (domain.Event, error) {
	const op = "postgres.EventRepo.Update"

	q, args, err := buildUpdate("events", id, patch, eventWritable, eventColumns)
	if err != nil {
		return domain.Event{}, wrapDBErr(op, err)
	}

	out, err := scanEvent(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return domain.Event{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *EventRepo) Remove(ctx context.Context, id string) error {
	const op = "postgres.EventRepo.Remove"

	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
