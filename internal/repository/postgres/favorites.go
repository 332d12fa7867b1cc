package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/meetly/internal/domain"
)

type FavoriteRepo struct {
	pool *pgxpool.Pool
	db   DB
}

// With returns a copy of r that runs its statements on db, typically a
// transaction.
func (r *FavoriteRepo) With(db DB) *FavoriteRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *FavoriteRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// InsertFavorite adds (userID, itemID). Inserting an existing pair succeeds.
func (r *FavoriteRepo) InsertFavorite(ctx context.Context, userID, itemID string, online bool) error {
	const op = "postgres.FavoriteRepo.InsertFavorite"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO favorites (id, user_id, item_id, online)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, item_id) DO NOTHING`,
		uuid.NewString(), userID, itemID, online,
	)

	return wrapDBErr(op, err)
}

// DeleteFavorite removes (userID, itemID). Deleting a missing pair succeeds.
func (r *FavoriteRepo) DeleteFavorite(ctx context.Context, userID, itemID string) error {
	const op = "postgres.FavoriteRepo.DeleteFavorite"

	_, err := r.handle().Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND item_id = $2`,
		userID, itemID,
	)

	return wrapDBErr(op, err)
}

func (r *FavoriteRepo) ListFavorites(ctx context.Context, userID string) ([]domain.FavoriteMarker, error) {
	const op = "postgres.FavoriteRepo.ListFavorites"

	rows, err := r.handle().Query(ctx,
		`SELECT id, user_id, item_id, online, created_at
		 FROM favorites WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make([]domain.FavoriteMarker, 0)
	for rows.Next() {
		var f domain.FavoriteMarker
		if err := rows.Scan(&f.ID, &f.UserID, &f.ItemID, &f.Online, &f.CreatedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, f)
	}

	return out, wrapDBErr(op, rows.Err())
}

func (r *FavoriteRepo) removeAllForUser(ctx context.Context, userID string) error {
	_, err := r.handle().Exec(ctx, `DELETE FROM favorites WHERE user_id = $1`, userID)
	return err
}
