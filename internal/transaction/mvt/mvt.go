// Package mvt implements the default in-process transaction engine. Writes
// are buffered per transaction and applied to the underlying store on commit;
// reads see the transaction's own pending writes first.
package mvt

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/storage"
	"github.com/lunedb/lune/internal/transaction"
)

func init() {
	engine.RegisterFactory(engine.CategoryTransaction, transaction.DefaultEngineName,
		func(env *engine.Env) engine.Engine {
			return New()
		})
}

var _ transaction.Engine = (*Engine)(nil)

// Engine is the buffered-write transaction engine.
type Engine struct {
	nextID atomic.Uint64
}

// New creates the engine.
func New() *Engine {
	return &Engine{}
}

// Name returns the engine's declared name.
func (e *Engine) Name() string { return transaction.DefaultEngineName }

// Init accepts any parameters; the engine keeps no on-disk state of its own.
func (e *Engine) Init(params map[string]string) error { return nil }

// Begin starts a transaction over st.
func (e *Engine) Begin(st storage.Store) transaction.Transaction {
	return &txn{
		id:      e.nextID.Add(1),
		store:   st,
		pending: make(map[string]*[]byte),
	}
}

// txn buffers writes in pending: a nil value slot marks a delete.
type txn struct {
	id      uint64
	store   storage.Store
	pending map[string]*[]byte
	done    bool
}

func (t *txn) Put(key string, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	t.pending[key] = &cp
}

func (t *txn) Delete(key string) {
	t.pending[key] = nil
}

func (t *txn) Get(key string) ([]byte, error) {
	if slot, ok := t.pending[key]; ok {
		if slot == nil {
			return nil, storage.ErrKeyNotFound
		}
		return *slot, nil
	}
	return t.store.Get(key)
}

func (t *txn) Commit() error {
	if t.done {
		return fmt.Errorf("mvt: transaction %d already finished", t.id)
	}
	t.done = true

	keys := make([]string, 0, len(t.pending))
	for key := range t.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		slot := t.pending[key]
		if slot == nil {
			if err := t.store.Delete(key); err != nil {
				return fmt.Errorf("mvt: commit delete %q: %w", key, err)
			}
			continue
		}
		if err := t.store.Put(key, *slot); err != nil {
			return fmt.Errorf("mvt: commit put %q: %w", key, err)
		}
	}
	return nil
}

func (t *txn) Rollback() {
	t.done = true
	t.pending = make(map[string]*[]byte)
}
