package session

import (
	"context"

	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/models"
)

// LogNotifier writes status changes to the log. It is used when no broker is
// configured.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyStatusChange(_ context.Context, msg models.StatusUpdateMessage) error {
	n.log.Info("status_notification", "Order status changed", map[string]any{
		"event":      msg.Event,
		"order_id":   msg.OrderID,
		"order_code": msg.OrderCode,
		"old_status": msg.OldStatus,
		"new_status": msg.NewStatus,
		"changed_by": msg.ChangedBy,
	})
	return nil
}
