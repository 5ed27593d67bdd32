// Package store keeps the console's local SQLite state: the history of
// onboardings completed from this machine.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"appcatalog/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// LocalStore is the SQLite-backed local store.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func NewLocalStore(path string) (*LocalStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Opened local store at %s", path)
	return store, nil
}

// initialize creates the required tables and applies column migrations.
func (s *LocalStore) initialize() error {
	historyTable := `
	CREATE TABLE IF NOT EXISTS onboarding_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		association_id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		app_id TEXT NOT NULL,
		app_name TEXT NOT NULL,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_app ON onboarding_history(app_id);
	CREATE INDEX IF NOT EXISTS idx_history_product ON onboarding_history(product_id);
	`

	if _, err := s.db.Exec(historyTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if err := RunMigrations(s.db); err != nil {
		return err
	}
	return SetSchemaVersion(s.db, CurrentSchemaVersion)
}

// Path returns the database location.
func (s *LocalStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}
