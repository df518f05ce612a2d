// Package memse implements the in-memory storage engine. Stores live only
// for the process lifetime; it exists for tests and cache-style workloads.
package memse

import (
	"sync"

	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/storage"
)

// EngineName is the descriptor name this engine registers under.
const EngineName = "memse"

func init() {
	engine.RegisterFactory(engine.CategoryStorage, EngineName, func(env *engine.Env) engine.Engine {
		return New()
	})
}

var _ storage.Engine = (*Engine)(nil)

// Engine is the in-memory storage engine.
type Engine struct {
	mu     sync.Mutex
	stores map[string]*memStore
}

// New creates an uninitialized engine.
func New() *Engine {
	return &Engine{stores: make(map[string]*memStore)}
}

// Name returns the engine's declared name.
func (e *Engine) Name() string { return EngineName }

// Init accepts any parameters; memory stores need no base directory.
func (e *Engine) Init(params map[string]string) error { return nil }

// OpenStore returns the named store, creating it on first use.
func (e *Engine) OpenStore(name string) (storage.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.stores[name]
	if !ok {
		st = &memStore{data: make(map[string][]byte)}
		e.stores[name] = st
	}
	return st, nil
}

// Close discards all stores.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stores = make(map[string]*memStore)
	return nil
}

type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (s *memStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *memStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (s *memStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) Close() error { return nil }
