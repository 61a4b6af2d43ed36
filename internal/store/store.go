package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/duoplan/duoplan/internal/remote"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (documents + snapshots)
const currentSchemaVersion = 1

// Store is a SQLite-backed document store. It implements remote.Store and
// the engine's local-cache interface.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	subs   map[string]map[int]remote.OnChange
	nextID int
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:   db,
		subs: make(map[string]map[int]remote.OnChange),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// snapshotSubscribers returns the current callbacks for a pairing in
// subscription order.
func (s *Store) snapshotSubscribers(pairingID string) []remote.OnChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.subs[pairingID]))
	for id := range s.subs[pairingID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]remote.OnChange, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[pairingID][id])
	}
	return fns
}

// Subscribe implements remote.Store. Delivery is in-process only: pushes
// reach subscribers within this process, not other processes sharing the
// database file. Multi-process deployments use the Postgres or HTTP
// backends instead.
func (s *Store) Subscribe(pairingID string, fn remote.OnChange) (remote.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[pairingID] == nil {
		s.subs[pairingID] = make(map[int]remote.OnChange)
	}
	id := s.nextID
	s.nextID++
	s.subs[pairingID][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[pairingID], id)
	}, nil
}
