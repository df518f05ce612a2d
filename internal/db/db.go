// Package db owns the core system database: the catalog every engine and the
// cluster metadata build on. Bootstrap runs exactly once per process, lazily,
// and later calls return the first outcome.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const systemDBFile = "lune.db"

const createCatalogTables = `
CREATE TABLE IF NOT EXISTS databases (
    name       TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS settings (
    name  TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

// Database is the core system database handle.
type Database struct {
	baseDir string
	logger  *slog.Logger

	once sync.Once
	db   *sql.DB
	err  error
}

// Open prepares a handle rooted at baseDir. No I/O happens until Bootstrap.
func Open(baseDir string, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{baseDir: baseDir, logger: logger}
}

// Bootstrap creates the system directory and catalog schema. Safe to call
// more than once; only the first call does work.
func (d *Database) Bootstrap() error {
	d.once.Do(func() {
		d.db, d.err = d.bootstrap()
	})
	return d.err
}

func (d *Database) bootstrap() (*sql.DB, error) {
	dir := filepath.Join(d.baseDir, "system")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create system dir: %w", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(dir, systemDBFile))
	if err != nil {
		return nil, fmt.Errorf("open system database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := conn.Exec(createCatalogTables); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create catalog tables: %w", err)
	}

	// The root database exists from the first boot onward.
	if _, err := conn.Exec(`INSERT OR IGNORE INTO databases (name) VALUES ('lune')`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seed root database: %w", err)
	}

	return conn, nil
}

// InternalConn returns the administrative connection. Only valid after a
// successful Bootstrap.
func (d *Database) InternalConn() *sql.DB { return d.db }

// Close releases the system database.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
