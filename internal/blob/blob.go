// Package blob provides string-keyed durable storage for serialized client
// state (cart, wishlist). Values are opaque byte slices; callers own the
// encoding.
package blob

import (
	"context"
	"fmt"
	"strings"
)

// Store is a string-keyed blob store.
type Store interface {
	// Get returns the value for key. The bool is false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverDir    = "dir"
	DriverSQLite = "sqlite"
)

// Config selects and configures a Store implementation.
type Config struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

// Open returns the Store described by cfg. An empty driver means memory.
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverDir:
		return NewDir(cfg.Path)
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close closes s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// namespaced prefixes every key with a fixed namespace.
type namespaced struct {
	inner  Store
	prefix string
}

// Namespace returns a Store that stores every key under prefix + "/".
func Namespace(s Store, prefix string) Store {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return s
	}
	return &namespaced{inner: s, prefix: prefix + "/"}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}
