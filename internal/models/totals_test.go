package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name       string
		items      []OrderItem
		wantUnits  int
		wantAmount string
	}{
		{
			name:       "empty list",
			items:      nil,
			wantUnits:  0,
			wantAmount: "0",
		},
		{
			name: "pizzas and drinks",
			items: []OrderItem{
				{ProductID: "p1", Category: CategoryPizza, Quantity: 2, UnitPrice: price("9.00")},
				{ProductID: "d1", Category: CategoryDrink, Quantity: 1, UnitPrice: price("2.50")},
			},
			wantUnits:  2,
			wantAmount: "20.50",
		},
		{
			name: "drinks only count towards amount",
			items: []OrderItem{
				{ProductID: "d1", Category: CategoryDrink, Quantity: 3, UnitPrice: price("1.50")},
			},
			wantUnits:  0,
			wantAmount: "4.50",
		},
		{
			name: "zero quantity lines are ignored",
			items: []OrderItem{
				{ProductID: "p1", Category: CategoryPizza, Quantity: 0, UnitPrice: price("12")},
				{ProductID: "p2", Category: CategoryPizza, Quantity: 1, UnitPrice: price("13")},
			},
			wantUnits:  1,
			wantAmount: "13",
		},
		{
			name: "fractional prices stay exact",
			items: []OrderItem{
				{ProductID: "p1", Category: CategoryPizza, Quantity: 3, UnitPrice: price("0.10")},
				{ProductID: "d1", Category: CategoryDrink, Quantity: 2, UnitPrice: price("0.20")},
			},
			wantUnits:  3,
			wantAmount: "0.70",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.items)
			if got.Units != tt.wantUnits {
				t.Errorf("ComputeTotals() units = %d, want %d", got.Units, tt.wantUnits)
			}
			if !got.Amount.Equal(price(tt.wantAmount)) {
				t.Errorf("ComputeTotals() amount = %s, want %s", got.Amount, tt.wantAmount)
			}
		})
	}
}

func TestComputeTotals_PriceSnapshot(t *testing.T) {
	product := Product{ID: "p1", Category: CategoryPizza, Name: "MARGHERITA", Price: price("9.00"), Active: true}
	order := Order{
		ID: "A1",
		Pizzas: []OrderItem{
			{ProductID: product.ID, Category: product.Category, Quantity: 2, UnitPrice: product.Price},
		},
	}
	order.Recompute()

	product.Price = price("9.50")
	order.Recompute()

	if !order.TotalAmount.Equal(price("18.00")) {
		t.Errorf("TotalAmount = %s, want 18.00", order.TotalAmount)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "float", input: 9.5, want: "9.5"},
		{name: "int", input: 12, want: "12"},
		{name: "numeric string", input: "2.50", want: "2.5"},
		{name: "padded string", input: " 3 ", want: "3"},
		{name: "json number", input: json.Number("4.25"), want: "4.25"},
		{name: "garbage string", input: "abc", want: "0"},
		{name: "nil", input: nil, want: "0"},
		{name: "bool", input: true, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.input)
			if !got.Equal(price(tt.want)) {
				t.Errorf("ParsePrice(%v) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
	}{
		{name: "float from json", input: float64(3), want: 3},
		{name: "string", input: "2", want: 2},
		{name: "negative", input: -1, want: 0},
		{name: "garbage", input: "x", want: 0},
		{name: "missing", input: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseQuantity(tt.input); got != tt.want {
				t.Errorf("ParseQuantity(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
