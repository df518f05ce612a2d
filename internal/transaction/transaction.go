// Package transaction defines the contract transaction engines implement and
// names the default engine used when a configured one cannot be resolved.
package transaction

import (
	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/storage"
)

// DefaultEngineName is the well-known fallback transaction engine. It is
// in-process and always available, which is why transaction resolution may
// fall back to it while the other categories fail hard.
const DefaultEngineName = "mvt"

// Engine is a transaction engine: it begins transactions over a storage store.
type Engine interface {
	engine.Engine

	Begin(st storage.Store) Transaction
}

// Transaction buffers writes against a store until Commit applies them.
// Rollback discards the buffer. Commit applies the buffered writes in key
// order and is not atomic with respect to store failures: a failing write
// aborts the commit and the writes applied before it stay in the store.
// A transaction is used by a single goroutine.
type Transaction interface {
	Put(key string, value []byte)
	Delete(key string)
	Get(key string) ([]byte, error)
	Commit() error
	Rollback()
}
