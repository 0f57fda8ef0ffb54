// Package session implements the operator-facing order workflow of one terminal:
// an unsaved draft, the guard that protects it, and the actions on the selected
// persisted order. The selection and the active list belong to the sync engine;
// the controller only asks it for changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/models"
	"pizzas-pos/internal/services/syncer"
)

var (
	ErrNoSelection     = errors.New("no persisted order selected")
	ErrNotEditingDraft = errors.New("not editing a draft")
	ErrNoPendingAction = errors.New("no action waiting for confirmation")
	ErrUnknownProduct  = errors.New("unknown product")
)

type Mode int

const (
	NoSelection Mode = iota
	EditingDraft
	ViewingPersisted
)

func (m Mode) String() string {
	switch m {
	case EditingDraft:
		return "EditingDraft"
	case ViewingPersisted:
		return "ViewingPersisted"
	default:
		return "NoSelection"
	}
}

// Outcome tells the caller whether a guarded action ran or is waiting for
// ConfirmPending / CancelPending.
type Outcome int

const (
	Applied Outcome = iota
	ConfirmRequired
)

// ProductLister is the catalog as the controller sees it
type ProductLister interface {
	ListActiveProducts(ctx context.Context, category models.Category) ([]models.Product, error)
}

// Notifier broadcasts order status changes to other terminals
type Notifier interface {
	NotifyStatusChange(ctx context.Context, msg models.StatusUpdateMessage) error
}

type Option func(*Controller)

func WithLogger(log *logger.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithCodeGenerator(gen func() string) Option {
	return func(c *Controller) { c.newCode = gen }
}

// WithTerminal names this terminal in outgoing notifications
func WithTerminal(name string) Option {
	return func(c *Controller) { c.terminal = name }
}

func WithOrderTTL(ttl time.Duration) Option {
	return func(c *Controller) { c.ttl = ttl }
}

func WithCollection(name string) Option {
	return func(c *Controller) { c.collection = name }
}

type Controller struct {
	engine     *syncer.Engine
	store      docstore.Store
	catalog    ProductLister
	log        *logger.Logger
	notifier   Notifier
	now        func() time.Time
	newCode    func() string
	terminal   string
	ttl        time.Duration
	collection string

	mu       sync.Mutex
	menu     []models.Product
	products map[string]models.Product
	draft    *draftState
	editing  bool
	pending  func() error

	notifications sync.WaitGroup
}

func New(engine *syncer.Engine, store docstore.Store, catalog ProductLister, opts ...Option) *Controller {
	c := &Controller{
		engine:     engine,
		store:      store,
		catalog:    catalog,
		now:        time.Now,
		newCode:    models.GenerateOrderCode,
		terminal:   "terminal",
		ttl:        models.DefaultOrderTTL,
		collection: docstore.CollectionOrders,
		products:   make(map[string]models.Product),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.notifier == nil {
		c.notifier = NewLogNotifier(c.log)
	}
	return c
}

// LoadCatalog reads the active pizzas and drinks. Prices used by drafts come
// from this copy until the next call.
func (c *Controller) LoadCatalog(ctx context.Context) error {
	var menu []models.Product
	for _, category := range []models.Category{models.CategoryPizza, models.CategoryDrink} {
		products, err := c.catalog.ListActiveProducts(ctx, category)
		if err != nil {
			return fmt.Errorf("failed to load %s catalog: %w", category, err)
		}
		menu = append(menu, products...)
	}

	byID := make(map[string]models.Product, len(menu))
	for _, p := range menu {
		byID[p.ID] = p
	}

	c.mu.Lock()
	c.menu = menu
	c.products = byID
	c.mu.Unlock()

	c.log.Info("catalog_loaded", "Catalog loaded for session", map[string]any{
		"products": len(menu),
	})
	return nil
}

// Products returns the loaded catalog, pizzas first.
func (c *Controller) Products() []models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Product(nil), c.menu...)
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	editing := c.editing
	c.mu.Unlock()

	if editing {
		return EditingDraft
	}
	if _, ok := c.engine.Selected(); ok {
		return ViewingPersisted
	}
	return NoSelection
}

// SelectedID is the id of the persisted order being viewed, if any.
func (c *Controller) SelectedID() string {
	if c.Mode() != ViewingPersisted {
		return ""
	}
	return c.engine.SelectedID()
}

// SelectOrder switches to viewing a persisted order. With unsaved draft
// quantities the switch is held back and ConfirmRequired is returned.
func (c *Controller) SelectOrder(id string) (Outcome, error) {
	if _, ok := c.engine.Order(id); !ok {
		return Applied, fmt.Errorf("select %s: %w", id, syncer.ErrOrderNotFound)
	}

	return c.guard(func() error {
		c.mu.Lock()
		c.editing = false
		c.mu.Unlock()
		return c.engine.Select(id)
	})
}

// ConfirmPending discards the draft and runs the held action.
func (c *Controller) ConfirmPending() error {
	c.mu.Lock()
	action := c.pending
	if action == nil {
		c.mu.Unlock()
		return ErrNoPendingAction
	}
	c.pending = nil
	c.draft = nil
	c.editing = false
	c.mu.Unlock()

	c.log.Info("draft_discarded", "Unsaved draft discarded by operator", nil)
	return action()
}

// CancelPending drops the held action and keeps the draft.
func (c *Controller) CancelPending() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return ErrNoPendingAction
	}
	c.pending = nil
	return nil
}

// HasPendingAction reports whether a guarded action awaits a decision.
func (c *Controller) HasPendingAction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// guard runs action unless a draft with quantities would be lost by it.
func (c *Controller) guard(action func() error) (Outcome, error) {
	c.mu.Lock()
	if c.draft != nil && c.draft.units() > 0 {
		c.pending = action
		c.mu.Unlock()
		return ConfirmRequired, nil
	}
	c.draft = nil
	c.pending = nil
	c.mu.Unlock()

	return Applied, action()
}

// Close waits for notifications still being sent.
func (c *Controller) Close() {
	c.notifications.Wait()
}

// notify sends a status message in the background. Delivery failures are logged.
func (c *Controller) notify(event string, order models.Order, previous models.Status) {
	msg := models.NewStatusUpdateMessage(event, order, previous, c.terminal, c.now())
	c.notifications.Add(1)
	go func() {
		defer c.notifications.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.notifier.NotifyStatusChange(ctx, msg); err != nil {
			c.log.Error("notify_failed", "Failed to send status notification", err, map[string]any{
				"order_id": order.ID,
				"event":    event,
			})
		}
	}()
}
