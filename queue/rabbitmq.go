package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// RabbitMQ holds one connection and channel used both to consume build
// commands and to publish results
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects and opens a channel with the given prefetch
func Dial(url string, prefetch int) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(max(prefetch, 1), 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &RabbitMQ{conn: conn, ch: ch}, nil
}

// Consume declares queueName and starts a manual-ack consumer on it
func (r *RabbitMQ) Consume(queueName string) (<-chan amqp.Delivery, error) {
	if _, err := r.ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return r.ch.Consume(queueName, "", false, false, false, false, nil)
}

// Publish declares queueName and sends body to it as persistent JSON
func (r *RabbitMQ) Publish(ctx context.Context, queueName, correlationID string, body []byte) error {
	if _, err := r.ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	err := r.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: correlationID,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}
	return nil
}

// Close shuts the channel and connection
func (r *RabbitMQ) Close() {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	log.Info().Msg("🔌 RabbitMQ closed")
}
