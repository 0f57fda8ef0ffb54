package document

import (
	"bytes"
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/models"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEncodeDecodeOrder(t *testing.T) {
	created := time.Date(2026, 3, 10, 20, 15, 0, 0, time.UTC)
	order := models.Order{
		Code: "K3Q9ZT01AB",
		Pizzas: []models.OrderItem{
			{ProductID: "p1", Name: "MARGHERITA", Category: models.CategoryPizza, Quantity: 2, UnitPrice: money("9.00")},
		},
		Drinks: []models.OrderItem{
			{ProductID: "d1", Name: "Agua", Category: models.CategoryDrink, Quantity: 1, UnitPrice: money("2.50"), Completed: true},
		},
		PaymentMethod: "card",
		Status:        models.StatusPreparing,
		CreatedAt:     created,
		ExpiresAt:     created.Add(30 * time.Minute),
	}
	order.Recompute()

	// round trip through JSON the way the Postgres store does
	raw, err := json.Marshal(EncodeOrder(order))
	if err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		t.Fatal(err)
	}

	got, issues := DecodeOrder(docstore.Document{ID: "A1", Data: data})
	if len(issues) != 0 {
		t.Fatalf("unexpected issues %v", issues)
	}
	if got.ID != "A1" || got.Code != order.Code || got.PaymentMethod != "card" {
		t.Errorf("identity fields = %+v", got)
	}
	if !got.TotalAmount.Equal(money("20.50")) || got.TotalUnits != 2 {
		t.Errorf("totals = %s / %d", got.TotalAmount, got.TotalUnits)
	}
	if !got.CreatedAt.Equal(created) || !got.ExpiresAt.Equal(order.ExpiresAt) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.ExpiresAt)
	}
	if !got.Drinks[0].Completed || got.Pizzas[0].Completed {
		t.Errorf("completion flags not preserved: %+v", got.Items())
	}
}

func TestDecodeOrder_Malformed(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		wantStatus models.Status
		wantAmount string
		wantIssue  string
	}{
		{
			name:       "empty document",
			data:       map[string]any{},
			wantStatus: models.StatusPreparing,
			wantAmount: "0",
			wantIssue:  FieldPizzas,
		},
		{
			name: "pizzas is not a list",
			data: map[string]any{
				FieldPizzas: "oops",
				FieldDrinks: []any{},
				FieldStatus: "Delivered",
			},
			wantStatus: models.StatusDelivered,
			wantAmount: "0",
			wantIssue:  FieldPizzas,
		},
		{
			name: "string price and missing quantity",
			data: map[string]any{
				FieldPizzas: []any{
					map[string]any{"productId": "p1", "unitPrice": "9.5", "quantity": "2"},
					map[string]any{"productId": "p2", "unitPrice": "abc", "quantity": 1},
					map[string]any{"productId": "p3", "unitPrice": 3},
				},
				FieldDrinks: []any{},
				FieldStatus: "Preparing",
			},
			wantStatus: models.StatusPreparing,
			wantAmount: "19",
			wantIssue:  "pizzas[2].quantity",
		},
		{
			name: "unknown status",
			data: map[string]any{
				FieldPizzas: []any{},
				FieldDrinks: []any{},
				FieldStatus: "Burnt",
			},
			wantStatus: models.StatusPreparing,
			wantAmount: "0",
			wantIssue:  FieldStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := DecodeOrder(docstore.Document{ID: "X", Data: tt.data})
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", got.Status, tt.wantStatus)
			}
			if !got.TotalAmount.Equal(money(tt.wantAmount)) {
				t.Errorf("TotalAmount = %s, want %s", got.TotalAmount, tt.wantAmount)
			}
			if got.Pizzas == nil || got.Drinks == nil {
				t.Errorf("item arrays must never be nil")
			}
			if !slices.Contains(issues, tt.wantIssue) {
				t.Errorf("issues = %v, want to contain %q", issues, tt.wantIssue)
			}
		})
	}
}

func TestDecodeOrder_LegacyFields(t *testing.T) {
	data := map[string]any{
		"orderId": "OLD0000001",
		"estado":  "Entregado",
		"status":  float64(3),
		"pizzas": []any{
			map[string]any{"id": "p1", "name": "DIAVOLA", "type": "pizza", "quantity": float64(1), "pricePerUnit": float64(13), "finalizado": true},
		},
		"drinks": []any{
			map[string]any{"id": "d1", "name": "Coca-Cola", "quantity": float64(2), "price": 1.5, "finalizado": true},
		},
		"totalSlices": float64(1),
		"totalAmount": float64(16),
		"createdAt":   "2026-03-10T20:00:00Z",
	}

	got, issues := DecodeOrder(docstore.Document{ID: "L1", Data: data})
	if len(issues) != 0 {
		t.Errorf("unexpected issues %v", issues)
	}
	if got.Code != "OLD0000001" {
		t.Errorf("Code = %q", got.Code)
	}
	if got.Status != models.StatusDelivered {
		t.Errorf("Status = %s, want Delivered", got.Status)
	}
	if got.Drinks[0].Category != models.CategoryDrink || !got.Drinks[0].UnitPrice.Equal(money("1.5")) {
		t.Errorf("drink = %+v", got.Drinks[0])
	}
	if !got.Pizzas[0].Completed || got.Pizzas[0].ProductID != "p1" {
		t.Errorf("pizza = %+v", got.Pizzas[0])
	}
	if want := got.CreatedAt.Add(models.DefaultOrderTTL); !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}
}

func TestItemsPatch(t *testing.T) {
	order := models.Order{
		Pizzas: []models.OrderItem{{ProductID: "p1", Category: models.CategoryPizza, Quantity: 1, UnitPrice: money("12"), Completed: true}},
		Status: models.StatusDelivered,
	}
	order.Recompute()
	at := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)

	without := ItemsPatch(order, false, at)
	if _, ok := without[FieldStatus]; ok {
		t.Error("status must only be written when requested")
	}
	with := ItemsPatch(order, true, at)
	if with[FieldStatus] != "Delivered" {
		t.Errorf("status = %v", with[FieldStatus])
	}
	if with[FieldUpdatedAt] != "2026-03-10T21:00:00Z" {
		t.Errorf("updatedAt = %v", with[FieldUpdatedAt])
	}
	if with[FieldTotalAmount] != json.Number("12") {
		t.Errorf("totalAmount = %v", with[FieldTotalAmount])
	}
}
