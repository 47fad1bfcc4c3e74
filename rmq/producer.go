package rmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer can send arbitrary JSON-serializable messages to a single exchange
type Producer interface {
	Send(ctx context.Context, data any) error
}

// NewProducer initializes a Producer from an AMQP client connection, declaring the
// named fanout exchange if it doesn't already exist
func NewProducer(conn *amqp.Connection, exchange string) (Producer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	defer ch.Close()

	if err := declareFanoutExchange(ch, exchange); err != nil {
		return nil, fmt.Errorf("failed to declare fanout exchange '%s': %w", exchange, err)
	}
	return &fanoutProducer{
		conn:     conn,
		exchange: exchange,
	}, nil
}

// declareFanoutExchange declares a durable fanout exchange; consumers bind their own
// queues to it
func declareFanoutExchange(ch *amqp.Channel, exchange string) error {
	durable := true
	autoDelete := false
	internal := false
	noWait := false
	return ch.ExchangeDeclare(exchange, "fanout", durable, autoDelete, internal, noWait, nil)
}

type fanoutProducer struct {
	conn     *amqp.Connection
	exchange string
}

func (p *fanoutProducer) Send(ctx context.Context, data any) error {
	msg, err := newPublishing(data, time.Now())
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	defer ch.Close()

	mandatory := false
	immediate := false
	return ch.PublishWithContext(ctx, p.exchange, "", mandatory, immediate, msg)
}

// newPublishing serializes data into a persistent JSON message
func newPublishing(data any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to serialize message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now.UTC(),
		AppId:        "rook-webhook",
		Body:         body,
	}, nil
}

// Publish connects to the server at uri, sends a single message to the named fanout
// exchange, and disconnects
func Publish(ctx context.Context, uri, exchange string, data any) error {
	conn, err := Dial(uri)
	if err != nil {
		return err
	}
	defer conn.Close()

	p, err := NewProducer(conn, exchange)
	if err != nil {
		return err
	}
	return p.Send(ctx, data)
}
