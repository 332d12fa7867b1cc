package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_DrainKeepsOrderAndEmpties(t *testing.T) {
	b := NewBuffer(4)
	ctx := context.Background()

	b.Notify(ctx, "u1", "first", SeverityInfo)
	b.Notify(ctx, "u1", "second", SeverityError)
	b.Notify(ctx, "u2", "other", SeverityInfo)

	got := b.Drain("u1")
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, SeverityError, got[1].Severity)

	assert.Empty(t, b.Drain("u1"))
	assert.Len(t, b.Drain("u2"), 1)
}

func TestBuffer_OverwritesOldest(t *testing.T) {
	b := NewBuffer(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		b.Notify(ctx, "u1", fmt.Sprintf("n%d", i), SeverityInfo)
	}

	got := b.Drain("u1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"n3", "n4", "n5"}, []string{got[0].Message, got[1].Message, got[2].Message})
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewBuffer(2), NewBuffer(2)
	Multi{a, nil, b}.Notify(context.Background(), "u1", "hello", SeverityWarning)

	assert.Len(t, a.Drain("u1"), 1)
	assert.Len(t, b.Drain("u1"), 1)
}

func TestLog_UsesSeverityLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Notify(context.Background(), "u1", "could not save favorite", SeverityError)

	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "user_id=u1")
}

func TestPubNub_PublishesToUserChannel(t *testing.T) {
	var channel string
	var msg map[string]any

	p := newPubNub(func(ch string, m map[string]any) error {
		channel, msg = ch, m
		return nil
	}, slog.Default())
	p.now = func() time.Time { return time.Unix(42, 0) }

	p.Notify(context.Background(), "u1", "booking failed", SeverityError)

	assert.Equal(t, "user-u1", channel)
	assert.Equal(t, "booking failed", msg["message"])
	assert.Equal(t, "error", msg["severity"])
	assert.Equal(t, int64(42), msg["ts_unix"])
}

func TestPubNub_SkipsAnonymousAndSwallowsErrors(t *testing.T) {
	calls := 0
	p := newPubNub(func(string, map[string]any) error {
		calls++
		return errors.New("network")
	}, slog.Default())

	p.Notify(context.Background(), "", "x", SeverityInfo)
	p.Notify(context.Background(), "u1", "x", SeverityInfo)

	assert.Equal(t, 1, calls)
}
