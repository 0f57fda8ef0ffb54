package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/models"
)

type staticOrders []models.Order

func (s staticOrders) ActiveOrders() []models.Order { return s }

type fakeLister struct{ err error }

func (f fakeLister) ListDocuments(context.Context, string) ([]docstore.Document, error) {
	return nil, f.err
}

var created = time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

func activeOrders() staticOrders {
	return staticOrders{
		{
			ID:   "a1",
			Code: "K7PX2M",
			Pizzas: []models.OrderItem{
				{ProductID: "p1", Name: "MARGHERITA", Quantity: 2, UnitPrice: decimal.NewFromInt(12), Completed: true},
			},
			Drinks: []models.OrderItem{
				{ProductID: "d1", Name: "Agua", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
			},
			TotalUnits:  3,
			TotalAmount: decimal.NewFromInt(25),
			Status:      models.StatusPreparing,
			CreatedAt:   created,
			ExpiresAt:   created.Add(30 * time.Minute),
		},
	}
}

func newTestServer(t *testing.T, store Lister) *httptest.Server {
	t.Helper()
	svc := NewService(activeOrders(), store, logger.Nop())
	svc.now = func() time.Time { return created.Add(time.Hour) }

	mux := http.NewServeMux()
	NewHandler(svc, logger.Nop(), "bar").Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandler_Routes(t *testing.T) {
	srv := newTestServer(t, fakeLister{})

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{name: "list", path: "/orders", wantCode: http.StatusOK},
		{name: "status", path: "/orders/K7PX2M/status", wantCode: http.StatusOK},
		{name: "status ignores case", path: "/orders/k7px2m/status", wantCode: http.StatusOK},
		{name: "unknown order", path: "/orders/ZZZZZZ/status", wantCode: http.StatusNotFound},
		{name: "health", path: "/health", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := srv.Client().Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.wantCode)
			}
			if resp.Header.Get(requestIDHeader) == "" {
				t.Error("response has no request id")
			}
		})
	}
}

func TestHandler_OrderStatusBody(t *testing.T) {
	srv := newTestServer(t, fakeLister{})

	resp, err := srv.Client().Get(srv.URL + "/orders/K7PX2M/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got OrderStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.PendingUnits != 1 || got.TotalUnits != 3 {
		t.Errorf("units = %d pending of %d", got.PendingUnits, got.TotalUnits)
	}
	if !got.Overdue {
		t.Error("order past its expiry should be overdue")
	}
	if len(got.Items) != 2 || !got.Items[0].Completed {
		t.Errorf("items = %+v", got.Items)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("total = %s", got.TotalAmount)
	}
}

func TestHandler_Unhealthy(t *testing.T) {
	srv := newTestServer(t, fakeLister{err: errors.New("connection refused")})

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "unhealthy" || body["terminal"] != "bar" {
		t.Errorf("body = %v", body)
	}
}
