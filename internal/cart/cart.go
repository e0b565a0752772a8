package cart

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/fjod/cart-widget/internal/domain"
	"github.com/fjod/cart-widget/internal/store"
)

// Listener is called with the current item count after every mutation.
// Badge displays register here.
type Listener func(count int)

// Cart is the in-memory, authoritative cart state. Every mutation is
// persisted wholesale to the store; a failed write is logged and the
// in-memory state stays authoritative for the session.
//
// Invalid input (unknown product, out-of-range index, non-positive
// quantity) is signaled by a false return, never by an error.
type Cart struct {
	mu        sync.Mutex
	items     []domain.LineItem
	store     store.Store
	listeners []Listener

	// saveMu is acquired while mu is still held, so snapshots reach the
	// store in mutation order even when requests overlap.
	saveMu sync.Mutex
}

func New(s store.Store) *Cart {
	return &Cart{store: s}
}

// OnChange registers a listener. Register before Load so the initial
// sync reaches every badge.
func (c *Cart) OnChange(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Load reads the persisted cart once at startup. A missing blob means a
// first visit; a corrupted or unreadable blob degrades to an empty cart.
// Neither is an error to the caller.
func (c *Cart) Load(ctx context.Context) {
	items, err := c.store.Load(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("failed to load cart, starting empty: %v", err)
		items = nil
	}

	c.mu.Lock()
	c.items = items
	count := countOf(c.items)
	c.mu.Unlock()
	c.notify(count)
}

// AddItem merges quantity into an existing line item with the same id,
// or appends a new one. There is no upper bound on the merged quantity
// and no guard against non-positive quantities at this stage.
func (c *Cart) AddItem(ctx context.Context, product domain.LineItem, quantity int) bool {
	if product.ID == "" {
		log.Printf("invalid product: %+v", product)
		return false
	}

	c.mu.Lock()
	merged := false
	for i := range c.items {
		if c.items[i].ID == product.ID {
			c.items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		image := product.Image
		if image == "" {
			image = domain.PlaceholderImage
		}
		c.items = append(c.items, domain.LineItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Quantity: quantity,
			Image:    image,
		})
	}
	snapshot := c.snapshotLocked()
	c.saveMu.Lock()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
	c.notify(countOf(snapshot))
	return true
}

// RemoveItem removes the entry at index; later entries shift down.
func (c *Cart) RemoveItem(ctx context.Context, index int) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	snapshot := c.snapshotLocked()
	c.saveMu.Lock()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
	c.notify(countOf(snapshot))
	return true
}

func (c *Cart) UpdateQuantity(ctx context.Context, index, quantity int) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) || quantity <= 0 {
		c.mu.Unlock()
		return false
	}
	c.items[index].Quantity = quantity
	snapshot := c.snapshotLocked()
	c.saveMu.Lock()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
	c.notify(countOf(snapshot))
	return true
}

// ChangeQuantity adjusts the quantity at index by delta. A result of
// zero or less removes the line item entirely rather than clamping to 1.
func (c *Cart) ChangeQuantity(ctx context.Context, index, delta int) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) {
		c.mu.Unlock()
		return false
	}
	quantity := c.items[index].Quantity + delta
	c.mu.Unlock()

	if quantity > 0 {
		return c.UpdateQuantity(ctx, index, quantity)
	}
	return c.RemoveItem(ctx, index)
}

func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	c.items = nil
	snapshot := c.snapshotLocked()
	c.saveMu.Lock()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
	c.notify(0)
}

// Total is the unrounded sum of price*quantity. Rounding happens only at
// display time.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for _, item := range c.items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return countOf(c.items)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Items returns a snapshot copy for rendering.
func (c *Cart) Items() []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cart) snapshotLocked() []domain.LineItem {
	items := make([]domain.LineItem, len(c.items))
	copy(items, c.items)
	return items
}

func countOf(items []domain.LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// persist writes the snapshot captured under the mutation's lock.
// Callers hold saveMu; it is released here once the write finished.
func (c *Cart) persist(ctx context.Context, items []domain.LineItem) {
	defer c.saveMu.Unlock()
	if err := c.store.Save(ctx, items); err != nil {
		log.Printf("failed to save cart: %v", err)
	}
}

func (c *Cart) notify(count int) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l(count)
	}
}
