package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category represents the catalog section a product belongs to
type Category string

const (
	CategoryPizza Category = "pizza"
	CategoryDrink Category = "drink"
)

// ParseCategory validates a category string
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryPizza, CategoryDrink:
		return Category(s), nil
	default:
		return "", fmt.Errorf("invalid category %q: must be one of pizza, drink", s)
	}
}

// Status represents the lifecycle status of an order
type Status string

const (
	StatusPreparing Status = "Preparing"
	StatusDelivered Status = "Delivered"
	StatusFinalized Status = "Finalized"
)

// IsTerminal reports whether no automatic transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusFinalized
}

// DefaultOrderTTL is the advisory lifetime of an order.
const DefaultOrderTTL = 30 * time.Minute

// Product is a catalog entry. The core only reads it.
type Product struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Ingredients []string        `json:"ingredients,omitempty"`
	Spicy       bool            `json:"spicy,omitempty"`
	Active      bool            `json:"active"`
}

// OrderItem is a line within an order. UnitPrice is fixed when the line is created.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Category  Category        `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Completed bool            `json:"completed"`
}

// Subtotal returns quantity × unit price
func (i OrderItem) Subtotal() decimal.Decimal {
	if i.Quantity <= 0 {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate root. A draft has an empty ID.
type Order struct {
	ID            string          `json:"id,omitempty"`
	Code          string          `json:"code"`
	Pizzas        []OrderItem     `json:"pizzas"`
	Drinks        []OrderItem     `json:"drinks"`
	TotalUnits    int             `json:"totalUnits"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

// IsDraft reports whether the order has never been persisted
func (o Order) IsDraft() bool {
	return o.ID == ""
}

// Items returns pizzas followed by drinks.
func (o Order) Items() []OrderItem {
	items := make([]OrderItem, 0, len(o.Pizzas)+len(o.Drinks))
	items = append(items, o.Pizzas...)
	return append(items, o.Drinks...)
}

// PendingItems returns the items not yet completed
func (o Order) PendingItems() []OrderItem {
	var pending []OrderItem
	for _, item := range o.Items() {
		if !item.Completed {
			pending = append(pending, item)
		}
	}
	return pending
}

// Clone returns a deep copy whose item slices can be mutated freely.
func (o Order) Clone() Order {
	c := o
	c.Pizzas = append([]OrderItem(nil), o.Pizzas...)
	c.Drinks = append([]OrderItem(nil), o.Drinks...)
	if o.UpdatedAt != nil {
		t := *o.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

// Recompute refreshes TotalUnits and TotalAmount from the items.
func (o *Order) Recompute() {
	totals := ComputeTotals(o.Items())
	o.TotalUnits = totals.Units
	o.TotalAmount = totals.Amount
}

// DropEmptyLines removes items whose quantity is zero or negative.
func (o *Order) DropEmptyLines() {
	o.Pizzas = dropEmpty(o.Pizzas)
	o.Drinks = dropEmpty(o.Drinks)
}

func dropEmpty(items []OrderItem) []OrderItem {
	kept := make([]OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	return kept
}

// SameDay reports whether t falls on the same calendar day as now in loc.
func SameDay(t, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ty, tm, td := t.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ty == ny && tm == nm && td == nd
}
