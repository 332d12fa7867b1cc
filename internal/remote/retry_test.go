package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/meetly/internal/repository"
)

func TestDo_RetriesTransientFailuresUpToThreeAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	transient := errors.New("connection reset")

	_, err := Do(context.Background(), RetryPolicy{}, func(context.Context) (int, error) {
		calls++
		return 0, transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := Do(context.Background(), RetryPolicy{}, func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("timeout")
		}
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestDo_NeverRetriesClientErrors(t *testing.T) {
	t.Parallel()

	cases := []error{
		fmt.Errorf("op: %w", repository.ErrNotFound),
		fmt.Errorf("op: %w", repository.ErrConflict),
		repository.ErrInvalid,
		&pgconn.PgError{Code: "23503"},
		&pgconn.PgError{Code: "22P02"},
		context.Canceled,
	}

	for _, tc := range cases {
		calls := 0
		_, err := Do(context.Background(), RetryPolicy{MaxAttempts: 5}, func(context.Context) (int, error) {
			calls++
			return 0, tc
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls, "error %v", tc)
	}
}

func TestIsClientError_SerializationFailureIsTransient(t *testing.T) {
	t.Parallel()

	assert.False(t, IsClientError(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsClientError(errors.New("dial tcp: i/o timeout")))
}
