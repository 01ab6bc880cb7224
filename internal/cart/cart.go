// Package cart implements the shopping cart: a quantity-bearing collection
// keyed by product and optional variation, persisted after every mutation.
package cart

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/shopfront-dev/storefront/internal/blob"
	"github.com/shopfront-dev/storefront/internal/catalog"
	"github.com/shopfront-dev/storefront/internal/collection"
)

// StorageKey is the blob key holding the serialized cart.
const StorageKey = "cart"

// Entry is one cart line.
type Entry struct {
	Product   catalog.Product    `json:"product"`
	Quantity  int                `json:"quantity"`
	Variation *catalog.Variation `json:"variation,omitempty"`
}

// Key returns the identity key for a product and optional variation id.
func Key(productID, variationID string) string {
	return productID + variationID
}

// Key returns the entry's identity key.
func (e Entry) Key() string {
	if e.Variation != nil {
		return Key(e.Product.ID, e.Variation.ID)
	}
	return Key(e.Product.ID, "")
}

// UnitPrice is the variation price when a variation is set, else the product price.
func (e Entry) UnitPrice() float64 {
	if e.Variation != nil {
		return e.Variation.Price
	}
	return e.Product.Price
}

// LineTotal is UnitPrice times Quantity.
func (e Entry) LineTotal() float64 {
	return e.UnitPrice() * float64(e.Quantity)
}

// Store is the cart state for one client.
type Store struct {
	entries *collection.Persistent[Entry]

	mu   sync.RWMutex
	open bool
}

// New creates a cart backed by s and rehydrates it. A nil s gives an
// in-memory cart.
func New(ctx context.Context, s blob.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	entries := collection.NewPersistent(s, StorageKey, Entry.Key,
		collection.WithLogger[Entry](logger.With("store", "cart")),
		collection.WithNormalize(normalize),
	)
	entries.Open(ctx)
	return &Store{entries: entries}
}

// normalize drops stored entries without a product id and lifts
// non-positive quantities to 1.
func normalize(e Entry) (Entry, bool) {
	if e.Product.ID == "" {
		return e, false
	}
	if e.Quantity < 1 {
		e.Quantity = 1
	}
	return e, true
}

// Add merges quantity units of product (and variation) into the cart. An
// existing line grows by quantity with no upper bound; otherwise a new line
// is appended. Quantities below 1 count as 1; sums saturate at math.MaxInt.
func (c *Store) Add(ctx context.Context, product catalog.Product, quantity int, variation *catalog.Variation) Entry {
	if quantity < 1 {
		quantity = 1
	}
	entry := Entry{Product: product, Quantity: quantity, Variation: variation}
	key := entry.Key()

	var result Entry
	c.entries.Mutate(ctx, func(s *collection.Set[Entry]) {
		if s.Update(key, func(existing Entry) Entry {
			existing.Quantity = addQuantity(existing.Quantity, quantity)
			return existing
		}) {
			result, _ = s.Get(key)
			return
		}
		s.Put(entry)
		result = entry
	})
	return result
}

// addQuantity adds two non-negative quantities, saturating at math.MaxInt.
func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// Remove deletes the line for productID/variationID. Absent lines are a no-op.
func (c *Store) Remove(ctx context.Context, productID, variationID string) bool {
	var removed bool
	c.entries.Mutate(ctx, func(s *collection.Set[Entry]) {
		removed = s.Delete(Key(productID, variationID))
	})
	return removed
}

// UpdateQuantity sets the quantity of an existing line to max(1, quantity).
// Returns false when no such line exists.
func (c *Store) UpdateQuantity(ctx context.Context, productID, variationID string, quantity int) bool {
	if quantity < 1 {
		quantity = 1
	}
	var found bool
	c.entries.Mutate(ctx, func(s *collection.Set[Entry]) {
		found = s.Update(Key(productID, variationID), func(e Entry) Entry {
			e.Quantity = quantity
			return e
		})
	})
	return found
}

// Clear empties the cart.
func (c *Store) Clear(ctx context.Context) {
	c.entries.Mutate(ctx, func(s *collection.Set[Entry]) {
		s.Reset()
	})
}

// Items returns the cart lines in the order they were added.
func (c *Store) Items() []Entry {
	return c.entries.Items()
}

// Get returns the line for productID/variationID.
func (c *Store) Get(productID, variationID string) (Entry, bool) {
	return c.entries.Get(Key(productID, variationID))
}

// TotalItems is the sum of quantities.
func (c *Store) TotalItems() int {
	total := 0
	for _, e := range c.entries.Items() {
		total = addQuantity(total, e.Quantity)
	}
	return total
}

// TotalPrice is the sum of line totals.
func (c *Store) TotalPrice() float64 {
	var total float64
	for _, e := range c.entries.Items() {
		total += e.LineTotal()
	}
	return total
}

// Toggle flips the open flag and returns the new value.
func (c *Store) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = !c.open
	return c.open
}

// Open marks the cart as visible.
func (c *Store) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
}

// Close marks the cart as hidden.
func (c *Store) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

// IsOpen reports the visibility flag.
func (c *Store) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Summary is a point-in-time view of the cart.
type Summary struct {
	Items      []Entry `json:"items"`
	TotalItems int     `json:"total_items"`
	TotalPrice float64 `json:"total_price"`
	Open       bool    `json:"open"`
}

// Summary returns the current cart view.
func (c *Store) Summary() Summary {
	items := c.entries.Items()
	s := Summary{Items: items, Open: c.IsOpen()}
	for _, e := range items {
		s.TotalItems = addQuantity(s.TotalItems, e.Quantity)
		s.TotalPrice += e.LineTotal()
	}
	return s
}
