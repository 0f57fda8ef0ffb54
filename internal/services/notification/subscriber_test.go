package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/messaging"
	"pizzas-pos/internal/models"
)

type fakeConsumer struct {
	bodies [][]byte
	errs   []error
	closed bool
}

func (f *fakeConsumer) StartConsuming(ctx context.Context, handler messaging.MessageHandler) error {
	for _, body := range f.bodies {
		f.errs = append(f.errs, handler(ctx, body))
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	f.closed = true
	return nil
}

func TestFormatNotification(t *testing.T) {
	at := time.Date(2026, 3, 10, 20, 5, 0, 0, time.UTC)
	tests := []struct {
		name string
		msg  models.StatusUpdateMessage
		want string
	}{
		{
			name: "created",
			msg:  models.StatusUpdateMessage{Event: models.EventCreated, OrderCode: "K3Q9ZT01AB", NewStatus: "Preparing", ChangedBy: "bar"},
			want: "Order K3Q9ZT01AB taken at bar",
		},
		{
			name: "fast order",
			msg:  models.StatusUpdateMessage{Event: models.EventCreated, OrderCode: "K3Q9ZT01AB", NewStatus: "Finalized", ChangedBy: "bar"},
			want: "Fast order K3Q9ZT01AB served",
		},
		{
			name: "delivered",
			msg:  models.StatusUpdateMessage{Event: models.EventStatusChanged, OrderCode: "X", OldStatus: "Preparing", NewStatus: "Delivered", ChangedBy: "kitchen"},
			want: "Order X is fully delivered",
		},
		{
			name: "reopened",
			msg:  models.StatusUpdateMessage{Event: models.EventStatusChanged, OrderCode: "X", OldStatus: "Delivered", NewStatus: "Preparing", ChangedBy: "kitchen"},
			want: "back in preparation",
		},
		{
			name: "finalized",
			msg:  models.StatusUpdateMessage{Event: models.EventFinalized, OrderCode: "X", ChangedBy: "bar"},
			want: "Order X finalized by bar",
		},
		{
			name: "cancelled",
			msg:  models.StatusUpdateMessage{Event: models.EventCancelled, OrderCode: "X", ChangedBy: "bar"},
			want: "has been cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.Timestamp = at
			got := formatNotification(tt.msg)
			if !strings.Contains(got, tt.want) {
				t.Errorf("formatNotification() = %q, want it to contain %q", got, tt.want)
			}
			if !strings.Contains(got, "2026-03-10 20:05:00") {
				t.Errorf("timestamp missing from %q", got)
			}
		})
	}
}

func TestSubscriber_Start(t *testing.T) {
	fromKitchen, _ := json.Marshal(models.StatusUpdateMessage{Event: models.EventFinalized, OrderCode: "AAA", ChangedBy: "kitchen"})
	fromSelf, _ := json.Marshal(models.StatusUpdateMessage{Event: models.EventFinalized, OrderCode: "BBB", ChangedBy: "bar"})

	consumer := &fakeConsumer{bodies: [][]byte{fromKitchen, fromSelf, []byte("not json")}}
	var out bytes.Buffer
	s := NewSubscriber(consumer, logger.Nop(), &out, "bar")

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "AAA") || strings.Contains(out.String(), "BBB") {
		t.Errorf("output = %q", out.String())
	}
	if !consumer.closed {
		t.Error("consumer not closed")
	}
	var perm *messaging.PermanentError
	if consumer.errs[0] != nil || consumer.errs[1] != nil || !errors.As(consumer.errs[2], &perm) {
		t.Errorf("handler errors = %v", consumer.errs)
	}
}
