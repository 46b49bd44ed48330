package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
)

// Engine owns one cart: the line items are the single source of truth and
// every derived figure is recomputed from them on read. The item list is
// written to the Store after every mutation; a failed write is logged and the
// in-memory state stays authoritative.
type Engine struct {
	owner  string
	store  Store
	logger *zap.Logger
	newID  func() string
	now    func() time.Time

	mu       sync.Mutex
	items    []LineItem
	lastUsed time.Time
}

type Option func(*Engine)

// WithIDGenerator overrides the time-ordered UUID used for new line items.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// NewEngine loads the owner's cart from store. If the load fails the engine
// starts empty.
func NewEngine(ctx context.Context, owner string, store Store, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		owner:  owner,
		store:  store,
		logger: logger.With(zap.String("owner", owner)),
		newID:  newLineItemID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	items, err := store.Load(ctx, owner)
	if err != nil {
		e.logger.Warn("load cart failed, starting empty", zap.Error(err))
		items = nil
	}
	e.items = make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			e.items = append(e.items, it)
		}
	}
	e.lastUsed = e.now()
	return e
}

func (e *Engine) Owner() string { return e.owner }

// AddItem merges n into an existing line with the same product, size and
// color, or appends a new line.
func (e *Engine) AddItem(ctx context.Context, n NewItem) (LineItem, error) {
	if err := n.Validate(); err != nil {
		return LineItem{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	for i := range e.items {
		if n.matches(e.items[i]) {
			e.items[i].Quantity += n.Quantity
			merged := e.items[i]
			e.persist(ctx)
			metrics.CartMutation("merge")
			e.logger.Debug("merged cart item", zap.String("item_id", merged.ID), zap.Int("quantity", merged.Quantity))
			return merged, nil
		}
	}

	it := LineItem{
		ID:        e.newID(),
		ProductID: n.ProductID,
		Name:      n.Name,
		Image:     n.Image,
		Price:     n.Price,
		Quantity:  n.Quantity,
		Size:      n.Size,
		Color:     n.Color,
	}
	e.items = append(e.items, it)
	e.persist(ctx)
	metrics.CartMutation("add")
	e.logger.Debug("added cart item", zap.String("item_id", it.ID), zap.String("product_id", it.ProductID))
	return it, nil
}

// RemoveItem deletes the line with the given id. Unknown ids are ignored.
func (e *Engine) RemoveItem(ctx context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	e.remove(ctx, id)
}

// UpdateQuantity sets an absolute quantity. A quantity of zero or less
// removes the line. Unknown ids are ignored.
func (e *Engine) UpdateQuantity(ctx context.Context, id string, quantity int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	if quantity <= 0 {
		e.remove(ctx, id)
		return
	}
	for i := range e.items {
		if e.items[i].ID == id {
			e.items[i].Quantity = quantity
			e.persist(ctx)
			metrics.CartMutation("update")
			return
		}
	}
}

func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	e.items = e.items[:0]
	e.persist(ctx)
	metrics.CartMutation("clear")
}

// RemoveOrdered takes the quantities of ordered off the matching lines and
// drops lines that reach zero. Lines added or raised after ordered was taken
// keep the difference.
func (e *Engine) RemoveOrdered(ctx context.Context, ordered []LineItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	qty := make(map[string]int, len(ordered))
	for _, it := range ordered {
		qty[it.ID] += it.Quantity
	}
	kept := e.items[:0]
	for _, it := range e.items {
		it.Quantity -= qty[it.ID]
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	e.items = kept
	e.persist(ctx)
	metrics.CartMutation("remove_ordered")
}

// Touch marks the cart as in use without reading or changing it.
func (e *Engine) Touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
}

// Items returns a copy of the current lines in insertion order.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]LineItem(nil), e.items...)
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Price(e.items)
}

// View returns items and snapshot read under the same lock.
func (e *Engine) View() ([]LineItem, Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()
	return append([]LineItem(nil), e.items...), Price(e.items)
}

// IdleSince reports the last time the cart was read through View or mutated.
func (e *Engine) IdleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

func (e *Engine) remove(ctx context.Context, id string) {
	for i := range e.items {
		if e.items[i].ID == id {
			e.items = append(e.items[:i], e.items[i+1:]...)
			e.persist(ctx)
			metrics.CartMutation("remove")
			return
		}
	}
}

// persist must be called with e.mu held.
func (e *Engine) persist(ctx context.Context) {
	snapshot := append([]LineItem(nil), e.items...)
	if err := e.store.Save(ctx, e.owner, snapshot); err != nil {
		metrics.CartPersistFailure()
		e.logger.Warn("persist cart failed", zap.Error(err), zap.Int("items", len(snapshot)))
	}
}

func (e *Engine) touch() { e.lastUsed = e.now() }

func newLineItemID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
