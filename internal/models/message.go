package models

import (
	"time"

	"github.com/google/uuid"
)

// Event names carried by StatusUpdateMessage
const (
	EventCreated       = "created"
	EventStatusChanged = "status_changed"
	EventFinalized     = "finalized"
	EventCancelled     = "cancelled"
)

// StatusUpdateMessage represents an order status change broadcast to other terminals
type StatusUpdateMessage struct {
	MessageID string    `json:"message_id"`
	Event     string    `json:"event"`
	OrderID   string    `json:"order_id"`
	OrderCode string    `json:"order_code"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStatusUpdateMessage creates a StatusUpdateMessage for an order status change
func NewStatusUpdateMessage(event string, order Order, oldStatus Status, changedBy string, at time.Time) StatusUpdateMessage {
	return StatusUpdateMessage{
		MessageID: uuid.NewString(),
		Event:     event,
		OrderID:   order.ID,
		OrderCode: order.Code,
		OldStatus: string(oldStatus),
		NewStatus: string(order.Status),
		ChangedBy: changedBy,
		Timestamp: at.UTC(),
	}
}
