package collection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/shopfront-dev/storefront/internal/blob"
)

// Persistent is a Set whose contents are read from a blob.Store at startup
// and written back after every mutation.
//
// Storage problems never reach the caller: a missing or unreadable value
// loads as empty, and a failed write is logged while the in-memory state
// stays authoritative. A nil store behaves as an in-memory-only collection.
type Persistent[T any] struct {
	mu         sync.Mutex // serializes mutate-then-save
	set        *Set[T]
	store      blob.Store
	storageKey string
	normalize  func(T) (T, bool)
	logger     *slog.Logger
}

// Option configures a Persistent collection.
type Option[T any] func(*Persistent[T])

// WithLogger sets the logger used for storage diagnostics.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Persistent[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNormalize sets a hook applied to every item read from storage. Items
// for which it returns false are discarded.
func WithNormalize[T any](fn func(T) (T, bool)) Option[T] {
	return func(p *Persistent[T]) {
		p.normalize = fn
	}
}

// NewPersistent creates a collection stored under storageKey in store.
// It starts empty; call Open to rehydrate.
func NewPersistent[T any](store blob.Store, storageKey string, keyFn func(T) string, opts ...Option[T]) *Persistent[T] {
	p := &Persistent[T]{
		set:        NewSet(keyFn),
		store:      store,
		storageKey: storageKey,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads the stored sequence. Absent, malformed or unreadable content
// yields an empty slice.
func (p *Persistent[T]) Load(ctx context.Context) []T {
	if p.store == nil {
		return []T{}
	}
	data, ok, err := p.store.Get(ctx, p.storageKey)
	if err != nil {
		p.logger.Warn("storage read failed, starting empty", "key", p.storageKey, "err", err)
		return []T{}
	}
	if !ok || len(data) == 0 {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		p.logger.Warn("discarding malformed stored state", "key", p.storageKey, "err", err)
		return []T{}
	}
	if p.normalize == nil {
		if items == nil {
			return []T{}
		}
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if norm, keep := p.normalize(item); keep {
			out = append(out, norm)
		}
	}
	return out
}

// Save serializes items and overwrites the stored value.
func (p *Persistent[T]) Save(ctx context.Context, items []T) {
	if p.store == nil {
		return
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		p.logger.Error("encoding state failed", "key", p.storageKey, "err", err)
		return
	}
	if err := p.store.Set(ctx, p.storageKey, data); err != nil {
		p.logger.Warn("storage write failed, keeping in-memory state", "key", p.storageKey, "err", err)
	}
}

// Open replaces the in-memory contents with what storage holds.
func (p *Persistent[T]) Open(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set.Replace(p.Load(ctx))
}

// Mutate runs fn against the in-memory set and persists the result. The
// collection is locked for the duration, so fn sees a stable view.
func (p *Persistent[T]) Mutate(ctx context.Context, fn func(s *Set[T])) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.set)
	p.Save(ctx, p.set.List())
}

// Items returns the current items in insertion order.
func (p *Persistent[T]) Items() []T {
	return p.set.List()
}

// Get retrieves an item by key.
func (p *Persistent[T]) Get(key string) (T, bool) {
	return p.set.Get(key)
}

// Has reports whether key is present.
func (p *Persistent[T]) Has(key string) bool {
	return p.set.Has(key)
}

// Len returns the number of items.
func (p *Persistent[T]) Len() int {
	return p.set.Len()
}
