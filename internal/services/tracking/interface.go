package tracking

import (
	"context"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/models"
)

// OrderSource is the terminal's live view of the active orders.
type OrderSource interface {
	ActiveOrders() []models.Order
}

// Lister is the part of the store used to check it is reachable.
type Lister interface {
	ListDocuments(ctx context.Context, collection string) ([]docstore.Document, error)
}
