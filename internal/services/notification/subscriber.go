package notification

import (
	"context"
	"fmt"
	"io"

	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/messaging"
	"pizzas-pos/internal/models"
)

// Consumer is the queue reader the subscriber runs on
type Consumer interface {
	StartConsuming(ctx context.Context, handler messaging.MessageHandler) error
	Close() error
}

// Subscriber prints order status changes from other terminals
type Subscriber struct {
	consumer Consumer
	logger   *logger.Logger
	out      io.Writer
	// self is this terminal's name; its own messages are not printed
	self string
}

func NewSubscriber(consumer Consumer, log *logger.Logger, out io.Writer, self string) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		out:      out,
		self:     self,
	}
}

// Start consumes until ctx is cancelled, then closes the consumer.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info("service_started", "Notification subscriber started", map[string]any{
		"terminal": s.self,
	})

	err := s.consumer.StartConsuming(ctx, s.handleNotification)

	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", closeErr, nil)
	}
	if err != nil && ctx.Err() == nil {
		s.logger.Error("consumer_failed", "Notification consumer failed", err, nil)
		return err
	}

	s.logger.Info("graceful_shutdown", "Notification subscriber stopped", nil)
	return nil
}

func (s *Subscriber) handleNotification(_ context.Context, body []byte) error {
	var msg models.StatusUpdateMessage
	if err := messaging.ParseMessage(body, &msg); err != nil {
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	s.logger.Debug("notification_received", "Received status update notification", map[string]any{
		"order_code": msg.OrderCode,
		"event":      msg.Event,
		"new_status": msg.NewStatus,
		"changed_by": msg.ChangedBy,
	})

	if msg.ChangedBy == s.self {
		return nil
	}
	if _, err := fmt.Fprintln(s.out, formatNotification(msg)); err != nil {
		return fmt.Errorf("failed to print notification: %w", err)
	}
	return nil
}

// formatNotification renders a status change for the operator
func formatNotification(msg models.StatusUpdateMessage) string {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")

	switch msg.Event {
	case models.EventCreated:
		if msg.NewStatus == string(models.StatusFinalized) {
			return fmt.Sprintf("⚡ [%s] Fast order %s served at %s.", timestamp, msg.OrderCode, msg.ChangedBy)
		}
		return fmt.Sprintf("🆕 [%s] Order %s taken at %s.", timestamp, msg.OrderCode, msg.ChangedBy)
	case models.EventFinalized:
		return fmt.Sprintf("🎉 [%s] Order %s finalized by %s.", timestamp, msg.OrderCode, msg.ChangedBy)
	case models.EventCancelled:
		return fmt.Sprintf("❌ [%s] Order %s has been cancelled by %s.", timestamp, msg.OrderCode, msg.ChangedBy)
	}

	switch msg.NewStatus {
	case string(models.StatusDelivered):
		return fmt.Sprintf("✅ [%s] Order %s is fully delivered. Marked by %s.", timestamp, msg.OrderCode, msg.ChangedBy)
	case string(models.StatusPreparing):
		return fmt.Sprintf("🍳 [%s] Order %s is back in preparation. Reopened by %s.", timestamp, msg.OrderCode, msg.ChangedBy)
	default:
		return fmt.Sprintf("📋 [%s] Order %s status changed from '%s' to '%s' by %s.",
			timestamp, msg.OrderCode, msg.OldStatus, msg.NewStatus, msg.ChangedBy)
	}
}
