// Package remote declares the backend access functions the client layer
// depends on, and the transport retry policy applied in front of them.
package remote

import (
	"context"

	"github.com/kirinyoku/meetly/internal/domain"
)

// Patch is a partial update keyed by column name.
type Patch map[string]any

// Remote is the data access contract for one entity kind.
type Remote[T any] interface {
	FetchList(ctx context.Context, filter domain.Filter) ([]T, error)
	// FetchDetail reports found=false when no record has id.
	FetchDetail(ctx context.Context, id string) (value T, found bool, err error)
	Create(ctx context.Context, payload T) (T, error)
	Update(ctx context.Context, id string, patch Patch) (T, error)
	Remove(ctx context.Context, id string) error
}

// Favorites is the data access contract for the per-user favorites table.
type Favorites interface {
	InsertFavorite(ctx context.Context, userID, itemID string, online bool) error
	DeleteFavorite(ctx context.Context, userID, itemID string) error
	ListFavorites(ctx context.Context, userID string) ([]domain.FavoriteMarker, error)
}
