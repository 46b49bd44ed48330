package events

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dial connects to RabbitMQ and opens a publisher on a fresh channel. The
// returned cleanup closes the channel and the connection.
func Dial(url string, seq Sequencer, producer string) (*Publisher, func(), error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	pub, err := NewPublisher(ch, seq, producer)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = pub.Close()
		_ = conn.Close()
	}
	return pub, cleanup, nil
}
