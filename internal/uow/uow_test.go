package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUoW_RunsHooksInOrderAfterSuccess(t *testing.T) {
	var calls []string

	err := New().Do(context.Background(), func(ctx context.Context, after func(AfterWrite)) error {
		after(func(context.Context) { calls = append(calls, "upsert") })
		after(func(context.Context) { calls = append(calls, "invalidate") })
		calls = append(calls, "write")
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"write", "upsert", "invalidate"}, calls)
}

func TestUoW_DropsHooksOnFailure(t *testing.T) {
	boom := errors.New("boom")
	ran := false

	err := New().Do(context.Background(), func(ctx context.Context, after func(AfterWrite)) error {
		after(func(context.Context) { ran = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}
