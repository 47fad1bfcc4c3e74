package rmq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const dialTimeout = 10 * time.Second

// Dial opens a connection to the RabbitMQ server at the given amqp:// or amqps:// URI
func Dial(uri string) (*amqp.Connection, error) {
	if _, err := amqp.ParseURI(uri); err != nil {
		return nil, fmt.Errorf("invalid AMQP URI %s: %w", RedactURI(uri), err)
	}
	conn, err := amqp.DialConfig(uri, amqp.Config{
		Dial:       amqp.DefaultDial(dialTimeout),
		Properties: amqp.Table{"connection_name": "rook-webhook"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", RedactURI(uri), err)
	}
	return conn, nil
}

// RedactURI returns uri with any password removed, suitable for logging
func RedactURI(uri string) string {
	parsed, err := amqp.ParseURI(uri)
	if err != nil {
		return "<invalid uri>"
	}
	if parsed.Password != "" {
		parsed.Password = "xxxxx"
	}
	return parsed.String()
}
