// Package checkout hands confirmed booking snapshots to the payment side
// over RabbitMQ.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kirinyoku/meetly/internal/domain"
)

const DefaultQueue = "booking.checkout"

type Config struct {
	URL   string
	Queue string
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends each booking as a persistent JSON message on a durable
// queue.
type Publisher struct {
	queue  string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	const op = "checkout.NewPublisher"

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: channel: %w", op, err)
	}

	p, err := newPublisher(ch, cfg.Queue, logger)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.conn = conn

	return p, nil
}

func newPublisher(ch channel, queue string, logger *slog.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	return &Publisher{
		queue:  queue,
		logger: logger.With("component", "checkout"),
		now:    time.Now,
		ch:     ch,
	}, nil
}

type checkoutMsg struct {
	Type    string         `json:"type"`
	Booking domain.Booking `json:"booking"`
	TsUnix  int64          `json:"ts_unix"`
}

func (p *Publisher) Publish(ctx context.Context, b domain.Booking) error {
	const op = "checkout.Publisher.Publish"

	body, err := json.Marshal(checkoutMsg{
		Type:    "booking.checkout",
		Booking: b,
		TsUnix:  p.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    b.ID,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.logger.Debug("booking handed to checkout", "booking_id", b.ID, "queue", p.queue)
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
