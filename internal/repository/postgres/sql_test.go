package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/remote"
	"github.com/kirinyoku/meetly/internal/repository"
)

func TestBuildWhere(t *testing.T) {
	where, args, err := buildWhere(
		domain.Filter{"category": "music", "search": "jazz", "upcoming": "true"},
		eventFilterColumns,
		"title",
	)
	require.NoError(t, err)
	assert.Equal(t, " WHERE category = $1 AND title ILIKE $2 AND starts_at >= now()", where)
	assert.Equal(t, []any{"music", "%jazz%"}, args)

	where, args, err = buildWhere(nil, eventFilterColumns, "title")
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)

	_, _, err = buildWhere(domain.Filter{"password": "x"}, eventFilterColumns, "title")
	assert.ErrorIs(t, err, repository.ErrInvalid)
}

func TestBuildUpdate(t *testing.T) {
	q, args, err := buildUpdate("events", "e1",
		remote.Patch{"title": "New", "category": "art"},
		eventWritable, "id")
	require.NoError(t, err)
	assert.Equal(t, "UPDATE events SET category = $1, title = $2 WHERE id = $3 RETURNING id", q)
	assert.Equal(t, []any{"art", "New", "e1"}, args)

	_, _, err = buildUpdate("events", "e1", remote.Patch{"id": "x"}, eventWritable, "id")
	assert.ErrorIs(t, err, repository.ErrInvalid)

	_, _, err = buildUpdate("events", "e1", nil, eventWritable, "id")
	assert.ErrorIs(t, err, repository.ErrInvalid)
}
