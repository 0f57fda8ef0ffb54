// Package syncer keeps a terminal's view of the active orders consistent with the
// shared order collection.
//
// The engine owns two pieces of state: the list of active orders (created today,
// not finalized) and the id of the selected order. Remote snapshots replace the
// list wholesale; local mutations are applied optimistically and written back
// without waiting, and writes for one order reach the store in the order they
// were issued. A snapshot always wins over local state, including local
// changes whose write has not reached the store yet. Failed writes are logged and
// never rolled back; the next snapshot repairs any divergence.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pizzas-pos/internal/adapter/document"
	"pizzas-pos/internal/docstore"
	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/metrics"
	"pizzas-pos/internal/models"
)

var (
	ErrOrderNotFound   = errors.New("order is not in the active set")
	ErrFeedAlreadyOpen = errors.New("realtime feed already open")
	ErrEngineClosed    = errors.New("sync engine closed")
	ErrDraftOrder      = errors.New("draft orders are never persisted")
)

// Store operations, used as the op label of writes
const (
	OpItems    = "items"
	OpFinalize = "finalize"
	OpDelete   = "delete"
)

// TransientSyncError wraps a failed store write. The local state it was meant
// to persist is kept.
type TransientSyncError struct {
	Op      string
	OrderID string
	Err     error
}

func (e *TransientSyncError) Error() string {
	return fmt.Sprintf("sync %s for order %s: %v", e.Op, e.OrderID, e.Err)
}

func (e *TransientSyncError) Unwrap() error {
	return e.Err
}

// State is what the presentation layer observes.
type State struct {
	Active   []models.Order
	Selected *models.Order
	// Remote is set when the change came from a store snapshot.
	Remote bool
}

// StateFunc observes every change of the active list or the selection. It is
// called outside the engine lock, from the store's delivery goroutine for
// snapshots and from the caller's goroutine for local changes. It may call
// back into the engine and the store.
type StateFunc func(State)

// Mutation is the outcome of a local change. Done yields the result of the
// store write once it has been attempted.
type Mutation struct {
	Order    models.Order
	Previous models.Status
	Done     <-chan error
}

func (m Mutation) StatusChanged() bool {
	return m.Order.Status != m.Previous
}

type Option func(*Engine)

func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone that decides which orders are "today".
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) { e.writeTimeout = d }
}

func WithCollection(name string) Option {
	return func(e *Engine) { e.collection = name }
}

type Engine struct {
	store        docstore.Store
	collection   string
	log          *logger.Logger
	metrics      *metrics.SyncMetrics
	now          func() time.Time
	loc          *time.Location
	writeTimeout time.Duration

	mu          sync.Mutex
	active      []models.Order
	selectedID  string
	observer    StateFunc
	unsubscribe func()
	opened      bool
	closed      bool
	// seq numbers writes per order so superseded writes can be told apart
	seq map[string]uint64
	// tails holds, per order, the completion of the last write issued; the
	// next write for that order starts only after it
	tails map[string]chan struct{}

	writes sync.WaitGroup
}

func New(store docstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		collection:   docstore.CollectionOrders,
		now:          time.Now,
		loc:          time.Local,
		writeTimeout: 10 * time.Second,
		seq:          make(map[string]uint64),
		tails:        make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	if e.metrics == nil {
		e.metrics = metrics.NewSyncMetrics(prometheus.NewRegistry())
	}
	return e
}

// OpenRealtimeFeed subscribes to the order collection. It succeeds at most once
// per engine; the subscription lives until Close. onChange may be nil.
func (e *Engine) OpenRealtimeFeed(ctx context.Context, onChange StateFunc) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.opened {
		e.mu.Unlock()
		return ErrFeedAlreadyOpen
	}
	e.opened = true
	e.observer = onChange
	e.mu.Unlock()

	// the store may deliver the first snapshot before Subscribe returns
	unsubscribe, err := e.store.Subscribe(ctx, e.collection, e.applySnapshot)
	if err != nil {
		e.mu.Lock()
		e.opened = false
		e.observer = nil
		e.mu.Unlock()
		return fmt.Errorf("failed to subscribe to %s: %w", e.collection, err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		unsubscribe()
		return ErrEngineClosed
	}
	e.unsubscribe = unsubscribe
	e.mu.Unlock()

	e.log.Info("feed_opened", "Realtime order feed opened", map[string]any{
		"collection": e.collection,
	})
	return nil
}

// Close releases the subscription and waits for in-flight writes. Writes
// issued afterwards fail with ErrEngineClosed. It is safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.observer = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.writes.Wait()

	e.log.Info("feed_closed", "Realtime order feed closed", map[string]any{
		"collection": e.collection,
	})
}

// applySnapshot replaces the active list with the decoded snapshot.
func (e *Engine) applySnapshot(docs []docstore.Document) {
	now := e.now()
	active := make([]models.Order, 0, len(docs))
	malformed := 0

	for _, doc := range docs {
		order, issues := document.DecodeOrder(doc)
		if len(issues) > 0 {
			malformed++
			e.log.Debug("malformed_record", "Order document needed coercion", map[string]any{
				"order_id": doc.ID,
				"fields":   issues,
			})
		}
		if order.Status.IsTerminal() || !models.SameDay(order.CreatedAt, now, e.loc) {
			continue
		}
		active = append(active, order)
	}
	sortByCreation(active)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.active = active
	cleared := ""
	if e.selectedID != "" && indexOf(active, e.selectedID) < 0 {
		cleared = e.selectedID
		e.selectedID = ""
	}
	state := e.stateLocked(true)
	observer := e.observer
	e.mu.Unlock()

	e.metrics.SnapshotsTotal.Inc()
	e.metrics.ActiveOrders.Set(float64(len(active)))
	if malformed > 0 {
		e.metrics.MalformedTotal.Add(float64(malformed))
	}
	if cleared != "" {
		e.metrics.SelectionCleared.Inc()
		e.log.Info("selection_cleared", "Selected order left the active set", map[string]any{
			"order_id": cleared,
		})
	}

	if observer != nil {
		observer(state)
	}
}

// ActiveOrders returns a copy of the active list, oldest first.
func (e *Engine) ActiveOrders() []models.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.active)
}

// Order returns the active order with the given id.
func (e *Engine) Order(id string) (models.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := indexOf(e.active, id); i >= 0 {
		return e.active[i].Clone(), true
	}
	return models.Order{}, false
}

// Selected returns the selected order, if any.
func (e *Engine) Selected() (models.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selectedID == "" {
		return models.Order{}, false
	}
	if i := indexOf(e.active, e.selectedID); i >= 0 {
		return e.active[i].Clone(), true
	}
	return models.Order{}, false
}

func (e *Engine) SelectedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedID
}

// Select points the selection at an active order.
func (e *Engine) Select(id string) error {
	e.mu.Lock()
	if indexOf(e.active, id) < 0 {
		e.mu.Unlock()
		return fmt.Errorf("select %s: %w", id, ErrOrderNotFound)
	}
	e.selectedID = id
	e.notifyAndUnlock()
	return nil
}

func (e *Engine) ClearSelection() {
	e.mu.Lock()
	if e.selectedID == "" {
		e.mu.Unlock()
		return
	}
	e.selectedID = ""
	e.notifyAndUnlock()
}

// Adopt inserts a freshly created order and selects it. If a snapshot already
// delivered the order, the delivered version is kept.
func (e *Engine) Adopt(order models.Order) error {
	if order.ID == "" {
		return ErrDraftOrder
	}
	e.mu.Lock()
	if indexOf(e.active, order.ID) < 0 {
		e.active = append(e.active, order.Clone())
		sortByCreation(e.active)
	}
	e.selectedID = order.ID
	e.notifyAndUnlock()
	return nil
}

// ApplyLocalMutation runs mutate on a copy of the order, removes empty lines,
// re-derives totals and status and makes the result visible before writing it
// to the store. The status is written only when it changed.
func (e *Engine) ApplyLocalMutation(ctx context.Context, id string, mutate func(*models.Order)) (Mutation, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Mutation{}, ErrEngineClosed
	}
	i := indexOf(e.active, id)
	if i < 0 {
		e.mu.Unlock()
		return Mutation{}, fmt.Errorf("mutate %s: %w", id, ErrOrderNotFound)
	}

	updated := e.active[i].Clone()
	previous := updated.Status
	mutate(&updated)
	updated.DropEmptyLines()
	updated.Recompute()
	updated.Status = models.NextStatus(previous, updated.Items())
	at := e.now()
	updated.UpdatedAt = &at
	e.active[i] = updated

	slot := e.reserveLocked(id)
	e.notifyAndUnlock()

	done := e.persist(ctx, updated, updated.Status != previous, slot, at)
	return Mutation{Order: updated.Clone(), Previous: previous, Done: done}, nil
}

// Persist writes the item arrays and totals of order, and its status when
// includeStatus is set. It does not wait for the store; the returned channel
// yields the outcome.
func (e *Engine) Persist(ctx context.Context, order models.Order, includeStatus bool) <-chan error {
	if order.ID == "" {
		return resolved(ErrDraftOrder)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return resolved(ErrEngineClosed)
	}
	slot := e.reserveLocked(order.ID)
	e.mu.Unlock()

	return e.persist(ctx, order, includeStatus, slot, e.now())
}

func (e *Engine) persist(ctx context.Context, order models.Order, includeStatus bool, slot writeSlot, at time.Time) <-chan error {
	patch := document.ItemsPatch(order, includeStatus, at)
	return e.write(ctx, OpItems, order.ID, slot, func(ctx context.Context) error {
		return e.store.UpdateDocument(ctx, e.collection, order.ID, patch)
	})
}

// Finalize marks an order Finalized in the store and drops it from the active
// set, clearing the selection if it pointed at it.
func (e *Engine) Finalize(ctx context.Context, id string) (Mutation, error) {
	order, slot, err := e.remove(id)
	if err != nil {
		return Mutation{}, fmt.Errorf("finalize %s: %w", id, err)
	}
	previous := order.Status
	at := e.now()
	order.Status = models.StatusFinalized
	order.UpdatedAt = &at

	patch := document.StatusPatch(models.StatusFinalized, at)
	done := e.write(ctx, OpFinalize, id, slot, func(ctx context.Context) error {
		return e.store.UpdateDocument(ctx, e.collection, id, patch)
	})
	return Mutation{Order: order, Previous: previous, Done: done}, nil
}

// Discard deletes an order from the store and drops it from the active set.
func (e *Engine) Discard(ctx context.Context, id string) (Mutation, error) {
	order, slot, err := e.remove(id)
	if err != nil {
		return Mutation{}, fmt.Errorf("discard %s: %w", id, err)
	}
	done := e.write(ctx, OpDelete, id, slot, func(ctx context.Context) error {
		return e.store.DeleteDocument(ctx, e.collection, id)
	})
	return Mutation{Order: order, Previous: order.Status, Done: done}, nil
}

func (e *Engine) remove(id string) (models.Order, writeSlot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return models.Order{}, writeSlot{}, ErrEngineClosed
	}
	i := indexOf(e.active, id)
	if i < 0 {
		e.mu.Unlock()
		return models.Order{}, writeSlot{}, ErrOrderNotFound
	}
	order := e.active[i]
	e.active = append(e.active[:i:i], e.active[i+1:]...)
	if e.selectedID == id {
		e.selectedID = ""
	}
	slot := e.reserveLocked(id)
	e.metrics.ActiveOrders.Set(float64(len(e.active)))
	e.notifyAndUnlock()
	return order.Clone(), slot, nil
}

// writeSlot is a write's place in its order's queue.
type writeSlot struct {
	seq      uint64
	prev     <-chan struct{}
	finished chan struct{}
}

// reserveLocked numbers the next write for id and queues it behind the
// previous one, so writes reach the store in the order they were issued.
// e.mu must be held and e.closed false.
func (e *Engine) reserveLocked(id string) writeSlot {
	e.seq[id]++
	slot := writeSlot{
		seq:      e.seq[id],
		prev:     e.tails[id],
		finished: make(chan struct{}),
	}
	e.tails[id] = slot.finished
	e.writes.Add(1)
	return slot
}

func (e *Engine) release(id string, slot writeSlot) {
	e.mu.Lock()
	if e.tails[id] == slot.finished {
		delete(e.tails, id)
	}
	e.mu.Unlock()
	close(slot.finished)
}

// write runs fn on its own goroutine once the previous write for id is done,
// detached from the caller's cancellation and bounded by the write timeout.
func (e *Engine) write(ctx context.Context, op, id string, slot writeSlot, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer e.writes.Done()
		defer close(done)
		defer e.release(id, slot)

		if slot.prev != nil {
			<-slot.prev
		}

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
		defer cancel()

		start := time.Now()
		err := fn(wctx)
		e.metrics.PersistLatencyMs.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))

		if err != nil {
			e.metrics.PersistTotal.WithLabelValues(op, metrics.ResultFailure).Inc()
			syncErr := &TransientSyncError{Op: op, OrderID: id, Err: err}
			e.log.Error("persist_failed", "Store write failed; local state kept until next snapshot", syncErr, map[string]any{
				"order_id": id,
				"op":       op,
			})
			done <- syncErr
			return
		}

		e.metrics.PersistTotal.WithLabelValues(op, metrics.ResultSuccess).Inc()
		if latest := e.latestSeq(id); latest != slot.seq {
			e.log.Debug("persist_superseded", "A newer write for this order was issued", map[string]any{
				"order_id": id,
				"op":       op,
				"seq":      slot.seq,
				"latest":   latest,
			})
		}
		done <- nil
	}()

	return done
}

func (e *Engine) latestSeq(id string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq[id]
}

// notifyAndUnlock releases e.mu and reports the current state to the observer.
func (e *Engine) notifyAndUnlock() {
	state := e.stateLocked(false)
	observer := e.observer
	e.mu.Unlock()
	if observer != nil {
		observer(state)
	}
}

func (e *Engine) stateLocked(remote bool) State {
	state := State{Active: cloneAll(e.active), Remote: remote}
	if i := indexOf(e.active, e.selectedID); e.selectedID != "" && i >= 0 {
		selected := e.active[i].Clone()
		state.Selected = &selected
	}
	return state
}

func indexOf(orders []models.Order, id string) int {
	if id == "" {
		return -1
	}
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}

func sortByCreation(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

func cloneAll(orders []models.Order) []models.Order {
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}

func resolved(err error) <-chan error {
	done := make(chan error, 1)
	done <- err
	close(done)
	return done
}
