package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/meetly/internal/repository"
)

// recordingTx stands in for a pgx.Tx and records every statement it runs.
type recordingTx struct {
	stmts   []string
	args    [][]any
	tags    map[string]string
	failOn  string
	failErr error
}

func (tx *recordingTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.stmts = append(tx.stmts, sql)
	tx.args = append(tx.args, args)
	if sql == tx.failOn {
		return pgconn.CommandTag{}, tx.failErr
	}
	return pgconn.NewCommandTag(tx.tags[sql]), nil
}

func (tx *recordingTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (tx *recordingTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

const (
	deleteFavorites = `DELETE FROM favorites WHERE user_id = $1`
	deleteBookings  = `DELETE FROM bookings WHERE user_id = $1`
	deleteUser      = `DELETE FROM users WHERE id = $1`
)

func TestUserRepo_RemoveCascadeRunsOnTx(t *testing.T) {
	r := NewStore(nil).Users()
	tx := &recordingTx{tags: map[string]string{
		deleteFavorites: "DELETE 2",
		deleteBookings:  "DELETE 1",
		deleteUser:      "DELETE 1",
	}}

	require.NoError(t, r.removeCascade(context.Background(), tx, "u1"))

	assert.Equal(t, []string{deleteFavorites, deleteBookings, deleteUser}, tx.stmts)
	for _, args := range tx.args {
		assert.Equal(t, []any{"u1"}, args)
	}
}

func TestUserRepo_RemoveCascadeMissingUser(t *testing.T) {
	r := NewStore(nil).Users()
	tx := &recordingTx{tags: map[string]string{deleteUser: "DELETE 0"}}

	err := r.removeCascade(context.Background(), tx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Len(t, tx.stmts, 3)
}

func TestUserRepo_RemoveCascadeStopsOnFailure(t *testing.T) {
	r := NewStore(nil).Users()
	boom := errors.New("boom")
	tx := &recordingTx{failOn: deleteBookings, failErr: boom}

	err := r.removeCascade(context.Background(), tx, "u1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{deleteFavorites, deleteBookings}, tx.stmts)
}
