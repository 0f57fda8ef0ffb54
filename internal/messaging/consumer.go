package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"pizzas-pos/internal/logger"
)

// MessageHandler processes one message body. A returned error requeues it.
type MessageHandler func(ctx context.Context, body []byte) error

// acknowledger is the part of amqp091.Delivery the consumer settles with
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer reads a terminal's notification queue
type Consumer struct {
	// channel returns a live channel, reconnecting when the last one was lost
	channel     func() (queueChannel, error)
	close       func() error
	logger      *logger.Logger
	queueName   string
	consumerTag string
	prefetch    int
}

func NewConsumer(conn *Connection, log *logger.Logger, queueName, consumerTag string, prefetch int) *Consumer {
	return &Consumer{
		channel: func() (queueChannel, error) {
			ch, err := conn.Channel()
			if err != nil {
				return nil, err
			}
			return ch, nil
		},
		close:       conn.Close,
		logger:      log,
		queueName:   queueName,
		consumerTag: consumerTag,
		prefetch:    prefetch,
	}
}

// StartConsuming binds the queue and processes messages until ctx is done.
// A closed delivery channel triggers a reconnect.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	for {
		msgs, err := c.subscribe()
		if err != nil {
			return err
		}

		c.logger.Info("consumer_started",
			fmt.Sprintf("Started consuming from queue %s", c.queueName),
			map[string]any{
				"queue":    c.queueName,
				"consumer": c.consumerTag,
				"prefetch": c.prefetch,
			})

		if done := c.drain(ctx, msgs, handler); done {
			c.logger.Info("consumer_stopped", "Consumer stopped by context", nil)
			return ctx.Err()
		}
		c.logger.Error("consumer_channel_closed", "Message channel closed, attempting to reconnect", nil, nil)
	}
}

func (c *Consumer) subscribe() (<-chan amqp091.Delivery, error) {
	channel, err := c.channel()
	if err != nil {
		return nil, err
	}
	if err := declareQueue(channel, c.queueName); err != nil {
		return nil, err
	}

	if err := channel.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := channel.Consume(
		c.queueName,   // queue
		c.consumerTag, // consumer
		false,         // auto-ack (we'll ack manually)
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, nil
}

// drain reports true when ctx ended and false when the channel closed
func (c *Consumer) drain(ctx context.Context, msgs <-chan amqp091.Delivery, handler MessageHandler) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case d, ok := <-msgs:
			if !ok {
				return false
			}
			c.processMessage(ctx, d, d.Body, handler)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, ack acknowledger, body []byte, handler MessageHandler) {
	start := time.Now()

	processingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := handler(processingCtx, body)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("message_processing_failed", "Failed to process message", err, map[string]any{
			"queue":       c.queueName,
			"duration_ms": duration.Milliseconds(),
		})
		// malformed bodies would loop forever if requeued
		requeue := !isPermanent(err)
		if nackErr := ack.Nack(false, requeue); nackErr != nil {
			c.logger.Error("message_nack_failed", "Failed to nack message", nackErr, nil)
		}
		return
	}

	c.logger.Debug("message_processed", "Successfully processed message", map[string]any{
		"queue":       c.queueName,
		"duration_ms": duration.Milliseconds(),
	})
	if ackErr := ack.Ack(false); ackErr != nil {
		c.logger.Error("message_ack_failed", "Failed to ack message", ackErr, nil)
	}
}

// ParseMessage parses a JSON message body into v. Its errors are permanent.
func ParseMessage(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &PermanentError{Err: err}
	}
	return nil
}

// PermanentError marks a message that will never be processed successfully
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent message error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func isPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// Close closes the connection, which also cancels the consumer
func (c *Consumer) Close() error {
	return c.close()
}
