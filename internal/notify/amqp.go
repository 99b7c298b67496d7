// Package notify delivers committed reservation changes to RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kirinyoku/culturetix/internal/domain"
)

const (
	QueueReservationCreated  = "reservation.created"
	QueueReservationCanceled = "reservation.canceled"

	defaultBuffer      = 1024
	defaultDialTimeout = 2 * time.Second
)

// ErrQueueFull is returned when the outbound buffer has no room; the change
// is dropped.
var ErrQueueFull = errors.New("notify: outbound queue full")

// AMQPPublisher publishes persistent JSON messages on the default exchange,
// one durable queue per change type.
//
// PublishReservationChanged only enqueues. Run owns the connection: it dials
// lazily, publishes queued changes and redials on the next change after a
// failure. Nothing on the caller's path touches the network.
type AMQPPublisher struct {
	url         string
	dialTimeout time.Duration
	logger      *slog.Logger
	queue       chan domain.ReservationChange

	conn *amqp.Connection
	ch   *amqp.Channel
}

type Option func(*AMQPPublisher)

// WithDialTimeout bounds connection setup, including the AMQP handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(p *AMQPPublisher) {
		if d > 0 {
			p.dialTimeout = d
		}
	}
}

// WithBuffer sets how many changes may wait for Run.
func WithBuffer(n int) Option {
	return func(p *AMQPPublisher) {
		if n > 0 {
			p.queue = make(chan domain.ReservationChange, n)
		}
	}
}

func NewAMQPPublisher(url string, logger *slog.Logger, opts ...Option) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	p := &AMQPPublisher{
		url:         url,
		dialTimeout: defaultDialTimeout,
		logger:      logger,
		queue:       make(chan domain.ReservationChange, defaultBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func queueFor(t domain.ChangeType) (string, error) {
	switch t {
	case domain.ChangeReservationCreated:
		return QueueReservationCreated, nil
	case domain.ChangeReservationCanceled:
		return QueueReservationCanceled, nil
	default:
		return "", fmt.Errorf("notify: no queue for change type %q", t)
	}
}

// PublishReservationChanged hands change to Run without blocking.
func (p *AMQPPublisher) PublishReservationChanged(_ context.Context, change domain.ReservationChange) error {
	const op = "notify.AMQPPublisher.PublishReservationChanged"

	if _, err := queueFor(change.Type); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	select {
	case p.queue <- change:
		return nil
	default:
		return fmt.Errorf("%s:%w", op, ErrQueueFull)
	}
}

// Run publishes queued changes until ctx is done, then closes the
// connection. A change that fails to publish is logged and dropped.
func (p *AMQPPublisher) Run(ctx context.Context) error {
	defer p.reset()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-p.queue:
			if err := p.publish(ctx, change); err != nil {
				p.logger.WarnContext(ctx, "publish reservation change to rabbitmq",
					slog.String("type", string(change.Type)),
					slog.Int64("reservation_id", change.ReservationID),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, change domain.ReservationChange) error {
	queue, err := queueFor(change.Type)
	if err != nil {
		return err
	}

	body, err := json.Marshal(change)
	if err != nil {
		return err
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    change.At,
			Type:         string(change.Type),
			Body:         body,
		},
	)
	if err != nil {
		p.reset()
		return err
	}

	return nil
}

// channel returns the open channel, dialing and declaring the queues when
// there is none. Only Run calls it.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}

	for _, q := range []string{QueueReservationCreated, QueueReservationCanceled} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("queue declare %s: %w", q, err)
		}
	}

	p.logger.Info("rabbitmq connected")
	p.conn, p.ch = conn, ch

	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
