package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateForConfirmation checks that an order can be submitted to the store.
func ValidateForConfirmation(o Order) error {
	items := o.Items()
	total := 0
	for i, item := range items {
		if item.Quantity < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "item quantity must not be negative",
			}
		}
		if item.UnitPrice.IsNegative() {
			return &ValidationError{
				Field:   fmt.Sprintf("items[%d].unitPrice", i),
				Message: "item price must not be negative",
			}
		}
		total += item.Quantity
	}

	if total == 0 {
		return &ValidationError{
			Field:   "items",
			Message: "order must contain at least one item",
		}
	}
	return nil
}
