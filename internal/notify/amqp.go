package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// dialTimeout bounds the TCP connect and AMQP handshake when the caller's
// context carries no deadline.
const dialTimeout = 5 * time.Second

// AMQPPublisher publishes events as persistent JSON messages to a durable
// queue through the default exchange. The connection is opened lazily and
// re-dialled after a failure.
type AMQPPublisher struct {
	url   string
	queue string
	log   *zap.Logger

	// lock is a one-slot semaphore so waiting publishers can give up when
	// their context ends.
	lock chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for queue on the broker at url.
func NewAMQPPublisher(url, queue string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, log: log, lock: make(chan struct{}, 1)}
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	select {
	case p.lock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", ev.Type, ctx.Err())
	}
	defer func() { <-p.lock }()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close shuts the channel and connection down.
func (p *AMQPPublisher) Close() error {
	p.lock <- struct{}{}
	defer func() { <-p.lock }()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

// channel returns an open channel, dialling if needed. The connect and
// handshake finish before ctx's deadline. Callers hold p.lock.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	timeout := dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("dial broker: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, p.queue); err != nil {
		conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.log.Info("connected to broker", zap.String("queue", p.queue))
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}
