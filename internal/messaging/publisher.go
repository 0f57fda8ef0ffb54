package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/models"
)

const publishTimeout = 10 * time.Second

// Publisher sends order status changes to the order events exchange
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
	now    func() time.Time
}

func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
		now:    time.Now,
	}
}

// NotifyStatusChange publishes msg to every bound terminal queue
func (p *Publisher) NotifyStatusChange(ctx context.Context, msg models.StatusUpdateMessage) error {
	return p.publishMessage(ctx, ExchangeOrderEvents, msg.Event, msg)
}

func (p *Publisher) publishMessage(ctx context.Context, exchange, routingKey string, message any) error {
	publishing, err := newPublishing(message, p.now())
	if err != nil {
		return err
	}

	channel, err := p.conn.Channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		publishing,
	)
	if err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", exchange),
			err, map[string]any{
				"exchange":    exchange,
				"routing_key": routingKey,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", exchange),
		map[string]any{
			"exchange":     exchange,
			"routing_key":  routingKey,
			"message_size": len(publishing.Body),
		})
	return nil
}

// newPublishing serializes message as a persistent JSON publishing
func newPublishing(message any, at time.Time) (amqp091.Publishing, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    at,
	}
	if msg, ok := message.(models.StatusUpdateMessage); ok {
		publishing.MessageId = msg.MessageID
		publishing.Type = msg.Event
	}
	return publishing, nil
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
