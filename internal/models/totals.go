package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Totals holds the derived aggregate fields of an order
type Totals struct {
	Units  int
	Amount decimal.Decimal
}

// ComputeTotals derives the pizza unit count and the money total of items.
// Only pizzas count towards Units; every category counts towards Amount.
func ComputeTotals(items []OrderItem) Totals {
	totals := Totals{Amount: decimal.Zero}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if item.Category == CategoryPizza {
			totals.Units += item.Quantity
		}
		totals.Amount = totals.Amount.Add(item.Subtotal())
	}
	return totals
}

// ParsePrice coerces a loosely typed value into money. Unparseable input is 0.
func ParsePrice(v any) decimal.Decimal {
	switch p := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return p
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(p)
	case float32:
		return ParsePrice(float64(p))
	case int:
		return decimal.NewFromInt(int64(p))
	case int64:
		return decimal.NewFromInt(p)
	case json.Number:
		return ParsePrice(string(p))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// ParseQuantity coerces a loosely typed value into a non-negative quantity.
func ParseQuantity(v any) int {
	var n float64
	switch q := v.(type) {
	case int:
		n = float64(q)
	case int64:
		n = float64(q)
	case float64:
		n = q
	case json.Number:
		f, err := q.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}
	if math.IsNaN(n) || n <= 0 || n > math.MaxInt32 {
		return 0
	}
	return int(n)
}
