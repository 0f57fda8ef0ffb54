package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pizzas-pos/internal/adapter/document"
	"pizzas-pos/internal/models"
)

// draftState lives only in this terminal. Completion flags are tracked here and
// never written.
type draftState struct {
	localID    string
	code       string
	quantities map[string]int
	completed  map[string]bool
}

func newDraftState(code string) *draftState {
	return &draftState{
		localID:    uuid.NewString(),
		code:       code,
		quantities: make(map[string]int),
		completed:  make(map[string]bool),
	}
}

func (d *draftState) units() int {
	n := 0
	for _, q := range d.quantities {
		n += q
	}
	return n
}

// Draft is a snapshot of the unsaved order. Order.ID is always empty.
type Draft struct {
	LocalID string
	Order   models.Order
}

// NewDraft switches to draft editing. An existing draft is kept.
func (c *Controller) NewDraft() Draft {
	c.mu.Lock()
	if c.draft == nil {
		c.draft = newDraftState(c.newCode())
	}
	c.editing = true
	c.pending = nil
	d := c.draftLocked()
	c.mu.Unlock()

	c.engine.ClearSelection()
	return d
}

// DiscardDraft drops the draft without asking.
func (c *Controller) DiscardDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = nil
	c.editing = false
	c.pending = nil
}

func (c *Controller) Draft() (Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing || c.draft == nil {
		return Draft{}, ErrNotEditingDraft
	}
	return c.draftLocked(), nil
}

func (c *Controller) Increment(productID string) error {
	return c.editQuantity(productID, func(q int) int { return q + 1 })
}

// Decrement lowers a quantity, stopping at zero.
func (c *Controller) Decrement(productID string) error {
	return c.editQuantity(productID, func(q int) int { return max(q-1, 0) })
}

func (c *Controller) SetQuantity(productID string, quantity int) error {
	if quantity < 0 {
		return &models.ValidationError{Field: "quantity", Message: "quantity must not be negative"}
	}
	return c.editQuantity(productID, func(int) int { return quantity })
}

func (c *Controller) RemoveDraftItem(productID string) error {
	return c.editQuantity(productID, func(int) int { return 0 })
}

func (c *Controller) editQuantity(productID string, next func(int) int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing || c.draft == nil {
		return ErrNotEditingDraft
	}
	if _, ok := c.products[productID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}

	q := next(c.draft.quantities[productID])
	if q == 0 {
		delete(c.draft.quantities, productID)
		delete(c.draft.completed, productID)
		return nil
	}
	c.draft.quantities[productID] = q
	return nil
}

func (c *Controller) toggleDraftItem(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return ErrNotEditingDraft
	}
	if c.draft.quantities[productID] == 0 {
		return fmt.Errorf("%w: %s is not in the draft", ErrUnknownProduct, productID)
	}
	c.draft.completed[productID] = !c.draft.completed[productID]
	return nil
}

func (c *Controller) toggleDraftAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return ErrNotEditingDraft
	}
	target := !models.AllCompleted(c.draftLocked().Order.Items())
	for id := range c.draft.quantities {
		c.draft.completed[id] = target
	}
	return nil
}

// draftLocked builds the draft order with current catalog prices, in catalog order.
func (c *Controller) draftLocked() Draft {
	d := c.draft
	order := models.Order{
		Code:   d.code,
		Pizzas: []models.OrderItem{},
		Drinks: []models.OrderItem{},
		Status: models.StatusPreparing,
	}
	for _, p := range c.menu {
		q := d.quantities[p.ID]
		if q <= 0 {
			continue
		}
		item := models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Quantity:  q,
			UnitPrice: p.Price,
			Completed: d.completed[p.ID],
		}
		if p.Category == models.CategoryPizza {
			order.Pizzas = append(order.Pizzas, item)
		} else {
			order.Drinks = append(order.Drinks, item)
		}
	}
	order.Recompute()
	order.Status = models.NextStatus(models.StatusPreparing, order.Items())
	return Draft{LocalID: d.localID, Order: order}
}

// ConfirmDraft writes the draft as a new Preparing order and selects it. An
// empty draft is rejected with a ValidationError. If the store rejects the
// write the draft is kept.
func (c *Controller) ConfirmDraft(ctx context.Context, paymentMethod string) (models.Order, error) {
	order, localID, err := c.submitDraft(ctx, paymentMethod, false)
	if err != nil {
		return models.Order{}, err
	}

	if err := c.engine.Adopt(order); err != nil {
		return order, err
	}
	c.notify(models.EventCreated, order, "")

	c.log.Info("order_confirmed", "Draft confirmed", map[string]any{
		"order_id":   order.ID,
		"code":       order.Code,
		"local_id":   localID,
		"total":      order.TotalAmount.StringFixed(2),
		"units":      order.TotalUnits,
		"payment":    paymentMethod,
		"item_count": len(order.Items()),
	})
	return order, nil
}

// FastOrder writes the draft straight to Finalized with every item completed,
// for counter sales that are handed over on the spot. It is never selected.
func (c *Controller) FastOrder(ctx context.Context, paymentMethod string) (models.Order, error) {
	order, _, err := c.submitDraft(ctx, paymentMethod, true)
	if err != nil {
		return models.Order{}, err
	}
	c.notify(models.EventCreated, order, "")

	c.log.Info("fast_order_created", "Fast order written as finalized", map[string]any{
		"order_id": order.ID,
		"code":     order.Code,
		"total":    order.TotalAmount.StringFixed(2),
	})
	return order, nil
}

func (c *Controller) submitDraft(ctx context.Context, paymentMethod string, finalized bool) (models.Order, string, error) {
	c.mu.Lock()
	if !c.editing || c.draft == nil {
		c.mu.Unlock()
		return models.Order{}, "", ErrNotEditingDraft
	}
	d := c.draftLocked()
	c.mu.Unlock()

	order := d.Order
	if err := models.ValidateForConfirmation(order); err != nil {
		return models.Order{}, "", err
	}

	now := c.now()
	order.PaymentMethod = paymentMethod
	order.CreatedAt = now
	order.ExpiresAt = now.Add(c.ttl)
	order.Status = models.StatusPreparing
	setCompleted(&order, finalized)
	if finalized {
		order.Status = models.StatusFinalized
	}

	id, err := c.store.AddDocument(ctx, c.collection, document.EncodeOrder(order))
	if err != nil {
		c.log.Error("order_submit_failed", "Failed to write new order; draft kept", err, map[string]any{
			"local_id": d.LocalID,
			"code":     order.Code,
		})
		return models.Order{}, "", fmt.Errorf("failed to submit order: %w", err)
	}
	order.ID = id

	c.mu.Lock()
	// the operator may have replaced the draft while the write was in flight
	if c.draft != nil && c.draft.localID == d.LocalID {
		c.draft = nil
		c.editing = false
	}
	c.mu.Unlock()

	return order, d.LocalID, nil
}

// RepeatOrder starts a new draft with the quantities of source, priced from
// the current catalog. Products no longer offered are left out. The guard of
// SelectOrder applies.
func (c *Controller) RepeatOrder(source models.Order) (Outcome, error) {
	return c.guard(func() error {
		c.mu.Lock()
		d := newDraftState(c.newCode())
		skipped := 0
		for _, item := range source.Items() {
			if item.Quantity <= 0 {
				continue
			}
			if _, ok := c.products[item.ProductID]; !ok {
				skipped++
				continue
			}
			d.quantities[item.ProductID] += item.Quantity
		}
		c.draft = d
		c.editing = true
		c.mu.Unlock()

		c.engine.ClearSelection()
		c.log.Info("order_repeated", "Draft created from previous order", map[string]any{
			"source_id": source.ID,
			"local_id":  d.localID,
			"skipped":   skipped,
		})
		return nil
	})
}

func setCompleted(order *models.Order, completed bool) {
	for i := range order.Pizzas {
		order.Pizzas[i].Completed = completed
	}
	for i := range order.Drinks {
		order.Drinks[i].Completed = completed
	}
}
