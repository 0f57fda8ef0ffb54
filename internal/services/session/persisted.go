package session

import (
	"context"
	"fmt"
	"slices"

	"pizzas-pos/internal/models"
)

// FinalizeResult reports what Finalize did. With NeedsConfirmation set nothing
// changed and Pending lists the items still open.
type FinalizeResult struct {
	NeedsConfirmation bool
	Pending           []models.OrderItem
	Order             models.Order
	Done              <-chan error
}

func (c *Controller) isEditing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing && c.draft != nil
}

func (c *Controller) selected() (models.Order, error) {
	if c.isEditing() {
		return models.Order{}, ErrNoSelection
	}
	order, ok := c.engine.Selected()
	if !ok {
		return models.Order{}, ErrNoSelection
	}
	return order, nil
}

// ToggleItem flips the completion flag of one line. On a draft the flag is
// local and the returned channel is already resolved.
func (c *Controller) ToggleItem(ctx context.Context, productID string) (<-chan error, error) {
	if c.isEditing() {
		if err := c.toggleDraftItem(productID); err != nil {
			return nil, err
		}
		return resolved(nil), nil
	}

	order, err := c.selected()
	if err != nil {
		return nil, err
	}
	if !containsProduct(order, productID) {
		return nil, fmt.Errorf("%w: %s is not in order %s", ErrUnknownProduct, productID, order.Code)
	}

	return c.mutate(ctx, order.ID, func(o *models.Order) {
		for _, items := range [][]models.OrderItem{o.Pizzas, o.Drinks} {
			for i := range items {
				if items[i].ProductID == productID {
					items[i].Completed = !items[i].Completed
				}
			}
		}
	})
}

// ToggleAll marks every line completed, or every line open when all of them
// already are. A persisted order gets a single write.
func (c *Controller) ToggleAll(ctx context.Context) (<-chan error, error) {
	if c.isEditing() {
		if err := c.toggleDraftAll(); err != nil {
			return nil, err
		}
		return resolved(nil), nil
	}

	order, err := c.selected()
	if err != nil {
		return nil, err
	}
	target := !models.AllCompleted(order.Items())

	return c.mutate(ctx, order.ID, func(o *models.Order) {
		setCompleted(o, target)
	})
}

// RemoveItems drops lines from the selected order. Removing the last open line
// delivers the order.
func (c *Controller) RemoveItems(ctx context.Context, productIDs ...string) (<-chan error, error) {
	order, err := c.selected()
	if err != nil {
		return nil, err
	}
	for _, id := range productIDs {
		if !containsProduct(order, id) {
			return nil, fmt.Errorf("%w: %s is not in order %s", ErrUnknownProduct, id, order.Code)
		}
	}

	return c.mutate(ctx, order.ID, func(o *models.Order) {
		for _, items := range [][]models.OrderItem{o.Pizzas, o.Drinks} {
			for i := range items {
				if slices.Contains(productIDs, items[i].ProductID) {
					items[i].Quantity = 0
				}
			}
		}
	})
}

func (c *Controller) mutate(ctx context.Context, id string, fn func(*models.Order)) (<-chan error, error) {
	m, err := c.engine.ApplyLocalMutation(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if m.StatusChanged() {
		c.notify(models.EventStatusChanged, m.Order, m.Previous)
	}
	return m.Done, nil
}

// PendingItems lists the open lines of the selected order.
func (c *Controller) PendingItems() ([]models.OrderItem, error) {
	order, err := c.selected()
	if err != nil {
		return nil, err
	}
	return order.PendingItems(), nil
}

// Finalize closes the selected order. While items are open it only reports
// them, unless confirmed is set.
func (c *Controller) Finalize(ctx context.Context, confirmed bool) (FinalizeResult, error) {
	order, err := c.selected()
	if err != nil {
		return FinalizeResult{}, err
	}
	if pending := order.PendingItems(); len(pending) > 0 && !confirmed {
		return FinalizeResult{NeedsConfirmation: true, Pending: pending, Order: order}, nil
	}

	m, err := c.engine.Finalize(ctx, order.ID)
	if err != nil {
		return FinalizeResult{}, err
	}
	c.notify(models.EventFinalized, m.Order, m.Previous)
	return FinalizeResult{Order: m.Order, Done: m.Done}, nil
}

// CancelOrder deletes the selected order.
func (c *Controller) CancelOrder(ctx context.Context) (<-chan error, error) {
	order, err := c.selected()
	if err != nil {
		return nil, err
	}

	m, err := c.engine.Discard(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	c.notify(models.EventCancelled, m.Order, m.Previous)
	c.log.Info("order_cancelled", "Order cancelled and removed", map[string]any{
		"order_id": order.ID,
		"code":     order.Code,
	})
	return m.Done, nil
}

func containsProduct(order models.Order, productID string) bool {
	return slices.ContainsFunc(order.Items(), func(item models.OrderItem) bool {
		return item.ProductID == productID
	})
}

func resolved(err error) <-chan error {
	done := make(chan error, 1)
	done <- err
	close(done)
	return done
}
