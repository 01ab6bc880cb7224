// Package collection provides keyed, insertion-ordered collections that
// rehydrate from and flush to a blob.Store.
package collection

import "sync"

// Set is a thread-safe, insertion-ordered collection of T with at most one
// item per key. The key is derived from the item itself.
type Set[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	key   func(T) string
}

// NewSet creates an empty Set keyed by keyFn.
func NewSet[T any](keyFn func(T) string) *Set[T] {
	return &Set[T]{
		items: make(map[string]T),
		order: make([]string, 0),
		key:   keyFn,
	}
}

// Key returns the identity key of item.
func (s *Set[T]) Key(item T) string {
	return s.key(item)
}

// Put stores item under its key. If the key already exists the item is
// overwritten but keeps its position. Returns true if the key existed.
func (s *Set[T]) Put(item T) bool {
	k := s.key(item)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.items[k]
	if !exists {
		s.order = append(s.order, k)
	}
	s.items[k] = item
	return exists
}

// Get retrieves an item by key.
func (s *Set[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	return item, ok
}

// Has reports whether key is present.
func (s *Set[T]) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// Update replaces the item stored under key with fn(item). Returns false if
// the key is absent. fn must not change the item's key.
func (s *Set[T]) Update(key string, fn func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return false
	}
	s.items[key] = fn(item)
	return true
}

// Delete removes an item by key. Returns true if the item existed.
func (s *Set[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists {
		return false
	}
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all items in insertion order.
func (s *Set[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]T, 0, len(s.order))
	for _, k := range s.order {
		result = append(result, s.items[k])
	}
	return result
}

// Len returns the number of items.
func (s *Set[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Reset clears all items.
func (s *Set[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = make([]string, 0)
}

// Replace clears the set and inserts items in order. Later duplicates
// overwrite earlier ones in place; items with an empty key are dropped.
func (s *Set[T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(items))
	s.order = make([]string, 0, len(items))
	for _, item := range items {
		k := s.key(item)
		if k == "" {
			continue
		}
		if _, exists := s.items[k]; !exists {
			s.order = append(s.order, k)
		}
		s.items[k] = item
	}
}
