// Package storage defines the contract storage engines implement on top of
// the pluggable-engine interface: named key-value stores with durable
// semantics left to the implementation.
package storage

import (
	"errors"

	"github.com/lunedb/lune/internal/engine"
)

// ErrKeyNotFound is returned by Get for keys that were never put or were deleted.
var ErrKeyNotFound = errors.New("key not found")

// Engine is a storage engine: it opens named stores under the base directory
// it was initialized with.
type Engine interface {
	engine.Engine

	// OpenStore opens (creating if needed) the named store. Opening the same
	// name twice returns handles onto the same underlying data.
	OpenStore(name string) (Store, error)

	// Close releases the engine and every store it opened.
	Close() error
}

// Store is a flat key-value namespace owned by a storage engine.
type Store interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Close() error
}
