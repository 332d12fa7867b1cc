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

const meetupColumns = `id, title, description, category, meeting_url, image_url,
	host_id, capacity, starts_at, created_at`

var meetupFilterColumns = map[string]string{
	"category": "category",
	"host_id":  "host_id",
}

var meetupWritable = map[string]bool{
	"title":       true,
	"description": true,
	"category":    true,
	"meeting_url": true,
	"image_url":   true,
	"capacity":    true,
	"starts_at":   true,
}

type MeetupRepo struct {
	pool *pgxpool.Pool
}

func scanMeetup(row pgx.Row) (domain.Meetup, error) {
	var m domain.Meetup
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Category, &m.MeetingURL, &m.ImageURL,
		&m.HostID, &m.Capacity, &m.StartsAt, &m.CreatedAt,
	)
	return m, err
}

func (r *MeetupRepo) FetchList(ctx context.Context, filter domain.Filter) ([]domain.Meetup, error) {
	const op = "postgres.MeetupRepo.FetchList"

	where, args, err := buildWhere(filter, meetupFilterColumns, "title")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+meetupColumns+` FROM meetups`+where+` ORDER BY starts_at, id`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.Meetup, 0)
	for rows.Next() {
		m, err := scanMeetup(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, m)
	}

	return out, wrapDBErr(op, rows.Err())
}

func (r *MeetupRepo) FetchDetail(ctx context.Context, id string) (domain.Meetup, bool, error) {
	const op = "postgres.MeetupRepo.FetchDetail"

	m, err := scanMeetup(r.pool.QueryRow(ctx,
		`SELECT `+meetupColumns+` FROM meetups WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Meetup{}, false, nil
	}
	if err != nil {
		return domain.Meetup{}, false, wrapDBErr(op, err)
	}

	return m, true, nil
}

func (r *MeetupRepo) Create(ctx context.Context, m domain.Meetup) (domain.Meetup, error) {
	const op = "postgres.MeetupRepo.Create"

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	out, err := scanMeetup(r.pool.QueryRow(ctx,
		`INSERT INTO meetups (`+meetupColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+meetupColumns,
		m.ID, m.Title, m.Description, m.Category, m.MeetingURL, m.ImageURL,
		m.HostID, m.Capacity, m.StartsAt, m.CreatedAt,
	))
	if err != nil {
		return domain.Meetup{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *MeetupRepo) Update(ctx context.Context, id string, patch remote.Patch) (domain.Meetup, error) {
	const op = "postgres.MeetupRepo.Update"

	q, args, err := buildUpdate("meetups", id, patch, meetupWritable, meetupColumns)
	if err != nil {
		return domain.Meetup{}, wrapDBErr(op, err)
	}

	out, err := scanMeetup(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return domain.Meetup{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *MeetupRepo) Remove(ctx context.Context, id string) error {
	const op = "postgres.MeetupRepo.Remove"

	tag, err := r.pool.Exec(ctx, `DELETE FROM meetups WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
