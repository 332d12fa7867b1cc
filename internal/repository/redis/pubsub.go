package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/meetly/internal/domain"
)

// EntityPubSub fans entity writes out to every running session so they can
// invalidate their local caches.
type EntityPubSub struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
}

func NewEntityPubSub(rdb *redis.Client) *EntityPubSub {
	return &EntityPubSub{
		rdb:     rdb,
		channel: ChannelEntitiesChanged(),
		now:     time.Now,
	}
}

type entityChangedMsg struct {
	Type   string      `json:"type"`
	Kind   domain.Kind `json:"kind"`
	ID     string      `json:"id"`
	TsUnix int64       `json:"ts_unix"`
}

func (p *EntityPubSub) encode(kind domain.Kind, id string) []byte {
	b, _ := json.Marshal(entityChangedMsg{
		Type:   "entity_changed",
		Kind:   kind,
		ID:     id,
		TsUnix: p.now().Unix(),
	})
	return b
}

func decodeEntityChanged(payload string) (domain.Kind, string, bool) {
	var msg entityChangedMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return "", "", false
	}
	if msg.Type != "entity_changed" || msg.Kind == "" {
		return "", "", false
	}
	return msg.Kind, msg.ID, true
}

func (p *EntityPubSub) PublishEntityChanged(ctx context.Context, kind domain.Kind, id string) error {
	return p.rdb.Publish(ctx, p.channel, p.encode(kind, id)).Err()
}

// Subscribe calls handler for every change message until ctx is done.
func (p *EntityPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, kind domain.Kind, id string)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if kind, id, ok := decodeEntityChanged(m.Payload); ok {
				handler(ctx, kind, id)
			}
		}
	}
}
