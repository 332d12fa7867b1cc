package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go"
)

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
}

type publishFunc func(channel string, message map[string]any) error

// PubNub pushes notices to the user's realtime channel.
type PubNub struct {
	publish publishFunc
	logger  *slog.Logger
	now     func() time.Time
}

func NewPubNub(cfg PubNubConfig, logger *slog.Logger) *PubNub {
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey

	pn := pubnub.NewPubNub(pnConfig)

	return newPubNub(func(channel string, message map[string]any) error {
		_, _, err := pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return err
	}, logger)
}

func newPubNub(publish publishFunc, logger *slog.Logger) *PubNub {
	return &PubNub{
		publish: publish,
		logger:  logger.With("component", "notify.pubnub"),
		now:     time.Now,
	}
}

func UserChannel(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

func (p *PubNub) Notify(_ context.Context, userID, message string, severity Severity) {
	if userID == "" {
		return
	}

	err := p.publish(UserChannel(userID), map[string]any{
		"type":     "notice",
		"message":  message,
		"severity": string(severity),
		"ts_unix":  p.now().Unix(),
	})
	if err != nil {
		p.logger.Warn("failed to publish notice", "user_id", userID, "error", err)
	}
}
