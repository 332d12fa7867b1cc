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

const userColumns = `id, email, full_name, avatar_url, created_at`

var userFilterColumns = map[string]string{
	"email": "email",
}

var userWritable = map[string]bool{
	"email":      true,
	"full_name":  true,
	"avatar_url": true,
}

type UserRepo struct {
	store *Store
	pool  *pgxpool.Pool
	db    DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.AvatarURL, &u.CreatedAt)
	return u, err
}

func (r *UserRepo) FetchList(ctx context.Context, filter domain.Filter) ([]domain.User, error) {
	const op = "postgres.UserRepo.FetchList"

	where, args, err := buildWhere(filter, userFilterColumns, "full_name")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	rows, err := r.handle().Query(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY full_name, id`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, u)
	}

	return out, wrapDBErr(op, rows.Err())
}

func (r *UserRepo) FetchDetail(ctx context.Context, id string) (domain.User, bool, error) {
	const op = "postgres.UserRepo.FetchDetail"

	u, err := scanUser(r.handle().QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, wrapDBErr(op, err)
	}

	return u, true, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	const op = "postgres.UserRepo.Create"

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	out, err := scanUser(r.handle().QueryRow(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		u.ID, u.Email, u.FullName, u.AvatarURL, u.CreatedAt,
	))
	if err != nil {
		return domain.User{}, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *UserRepo) Update(ctx context.Context, id string, patch remote.Patch) (domain.User, error) {
	const op = "postgres.UserRepo.Update"

	q, args, err := buildUpdate("users", id, patch, userWritable, userColumns)
	if err != nil {
		return domain.User{}, wrapDBErr(op, err)
	}

	out, err := scanUser(r.handle().QueryRow(ctx, q, args...))
	if err != nil {
		return domain.User{}, wrapDBErr(op, err)
	}

	return out, nil
}

// Remove deletes a user together with their favorites and bookings in one
// transaction.
func (r *UserRepo) Remove(ctx context.Context, id string) error {
	const op = "postgres.UserRepo.Remove"

	err := r.store.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		return r.removeCascade(ctx, tx, id)
	})

	return wrapDBErr(op, err)
}

// removeCascade deletes the user's favorites and bookings before the user
// row, all on tx.
func (r *UserRepo) removeCascade(ctx context.Context, tx DB, id string) error {
	if err := r.store.Favorites().With(tx).removeAllForUser(ctx, id); err != nil {
		return err
	}
	if err := r.store.Bookings().With(tx).removeAllForUser(ctx, id); err != nil {
		return err
	}

	tag, err := r.With(tx).handle().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
