// Package aose implements the append-only storage engine: each named store is
// a SQLite database file under <base_dir>/aose, written in WAL mode.
package aose

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lunedb/lune/internal/engine"
	"github.com/lunedb/lune/internal/storage"

	_ "modernc.org/sqlite"
)

// EngineName is the descriptor name this engine registers under.
const EngineName = "aose"

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv (
    k TEXT PRIMARY KEY,
    v BLOB NOT NULL
)`

func init() {
	engine.RegisterFactory(engine.CategoryStorage, EngineName, func(env *engine.Env) engine.Engine {
		return New()
	})
}

// Compile-time interface satisfaction check.
var _ storage.Engine = (*Engine)(nil)

// Engine is the append-only storage engine.
type Engine struct {
	mu     sync.Mutex
	dir    string
	stores map[string]*kvStore
}

// New creates an uninitialized engine. Init must run before OpenStore.
func New() *Engine {
	return &Engine{stores: make(map[string]*kvStore)}
}

// Name returns the engine's declared name.
func (e *Engine) Name() string { return EngineName }

// Init creates the engine's data directory under the injected base_dir.
func (e *Engine) Init(params map[string]string) error {
	baseDir := params["base_dir"]
	if baseDir == "" {
		return fmt.Errorf("aose: base_dir parameter is required")
	}

	dir := filepath.Join(baseDir, EngineName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("aose: create data dir: %w", err)
	}

	e.mu.Lock()
	e.dir = dir
	e.mu.Unlock()
	return nil
}

// OpenStore opens the named store, creating its database file on first use.
func (e *Engine) OpenStore(name string) (storage.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dir == "" {
		return nil, fmt.Errorf("aose: engine not initialized")
	}
	if st, ok := e.stores[name]; ok {
		return st, nil
	}

	path := filepath.Join(e.dir, name+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("aose: open store %q: %w", name, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("aose: set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("aose: set busy timeout: %w", err)
	}
	if _, err := db.Exec(createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("aose: create kv table: %w", err)
	}

	st := &kvStore{db: db}
	e.stores[name] = st
	return st, nil
}

// Close closes every open store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for name, st := range e.stores {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("aose: close store %q: %w", name, err)
		}
		delete(e.stores, name)
	}
	return firstErr
}

type kvStore struct {
	db *sql.DB
}

func (s *kvStore) Put(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (s *kvStore) Get(key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return v, nil
}

func (s *kvStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE k = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *kvStore) Close() error {
	return s.db.Close()
}
