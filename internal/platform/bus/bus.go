// Package bus wires the service to its RabbitMQ topology: one topic exchange
// for patient events, with a general queue plus dedicated queues for clinical
// notes and triage assessments.
package bus

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	Exchange = "patient.events.exchange"

	QueuePatientEvents = "patient.events.queue"
	QueueClinicalNotes = "clinical.notes.queue"
	QueueTriage        = "triage.assessments.queue"
)

// bindings maps each queue to its routing-key pattern on the exchange. The
// general queue overlaps the dedicated ones on purpose: note and triage
// events are delivered to both.
var bindings = map[string]string{
	QueuePatientEvents: "patient.*",
	QueueClinicalNotes: "patient.note.*",
	QueueTriage:        "patient.triage.*",
}

// HandlerFunc processes one delivery body. A non-nil error rejects the
// delivery without requeue; nil acknowledges it.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer owns the AMQP connection and channel for the service.
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger zerolog.Logger
}

// Dial connects to the broker and declares the full topology. Exchange and
// queues are durable, so declaration is idempotent across restarts.
func Dial(url string, logger zerolog.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	c := &Consumer{
		conn:   conn,
		ch:     ch,
		logger: logger.With().Str("component", "bus").Logger(),
	}
	if err := c.declareTopology(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declareTopology() error {
	if err := c.ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}
	for queue, pattern := range bindings {
		if _, err := c.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := c.ch.QueueBind(queue, pattern, Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", queue, pattern, err)
		}
	}
	return nil
}

// Subscribe starts consuming the named queue, invoking handler for each
// delivery. Handler errors reject the delivery without requeue; everything
// else is acknowledged. The consumer goroutine exits when the channel closes
// or ctx is cancelled.
func (c *Consumer) Subscribe(ctx context.Context, queue string, handler HandlerFunc) error {
	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, open := <-deliveries:
				if !open {
					c.logger.Warn().Str("queue", queue).Msg("delivery channel closed")
					return
				}
				if err := handler(ctx, d.Body); err != nil {
					c.logger.Error().Err(err).
						Str("queue", queue).
						Str("routing_key", d.RoutingKey).
						Msg("handler failed, rejecting delivery")
					if nackErr := d.Nack(false, false); nackErr != nil {
						c.logger.Error().Err(nackErr).Str("queue", queue).Msg("nack failed")
					}
					continue
				}
				if ackErr := d.Ack(false); ackErr != nil {
					c.logger.Error().Err(ackErr).Str("queue", queue).Msg("ack failed")
				}
			}
		}
	}()

	c.logger.Info().Str("queue", queue).Msg("consumer started")
	return nil
}

func (c *Consumer) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
