// Package wishlist implements a presence-only product collection with
// toggle semantics, persisted after every mutation.
package wishlist

import (
	"context"
	"log/slog"

	"github.com/shopfront-dev/storefront/internal/blob"
	"github.com/shopfront-dev/storefront/internal/catalog"
	"github.com/shopfront-dev/storefront/internal/collection"
)

// StorageKey is the blob key holding the serialized wishlist.
const StorageKey = "wishlist"

func productKey(p catalog.Product) string { return p.ID }

// Store is the wishlist state for one client.
type Store struct {
	products *collection.Persistent[catalog.Product]
}

// New creates a wishlist backed by s and rehydrates it.
func New(ctx context.Context, s blob.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	products := collection.NewPersistent(s, StorageKey, productKey,
		collection.WithLogger[catalog.Product](logger.With("store", "wishlist")),
	)
	products.Open(ctx)
	return &Store{products: products}
}

// Add appends product unless one with the same id is already present.
// Returns true if it was added.
func (w *Store) Add(ctx context.Context, product catalog.Product) bool {
	var added bool
	w.products.Mutate(ctx, func(s *collection.Set[catalog.Product]) {
		if s.Has(product.ID) {
			return
		}
		s.Put(product)
		added = true
	})
	return added
}

// Remove deletes the product with productID if present.
func (w *Store) Remove(ctx context.Context, productID string) bool {
	var removed bool
	w.products.Mutate(ctx, func(s *collection.Set[catalog.Product]) {
		removed = s.Delete(productID)
	})
	return removed
}

// Toggle removes product if present, otherwise adds it, as one step.
// Returns whether the product is in the wishlist afterwards.
func (w *Store) Toggle(ctx context.Context, product catalog.Product) bool {
	var present bool
	w.products.Mutate(ctx, func(s *collection.Set[catalog.Product]) {
		if s.Delete(product.ID) {
			return
		}
		s.Put(product)
		present = true
	})
	return present
}

// Clear empties the wishlist.
func (w *Store) Clear(ctx context.Context) {
	w.products.Mutate(ctx, func(s *collection.Set[catalog.Product]) {
		s.Reset()
	})
}

// Contains reports whether productID is in the wishlist.
func (w *Store) Contains(productID string) bool {
	return w.products.Has(productID)
}

// Items returns the wishlisted products in insertion order.
func (w *Store) Items() []catalog.Product {
	return w.products.Items()
}
