// Package db implements SQLite persistence for users, sessions and notes.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// MaxOpenConns keeps the connection pool small. SQLite is
	// single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the number of idle connections kept around.
	MaxIdleConns = 2
)

// Sentinel errors surfaced by store operations.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateSlug = errors.New("slug already exists")
	ErrUsernameTaken = errors.New("username already exists")
)

// Store wraps the sql.DB connection for all persistence operations.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path, applies pragmas
// and the schema, and returns a ready Store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: sqlDB}, nil
}

// OpenInMemory creates an isolated in-memory Store for tests. The name
// scopes the shared cache, so every caller gets a fresh database.
func OpenInMemory(name string) (*Store, error) {
	if name == "" {
		name = "yanote-test"
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}

	// A single connection keeps the memory database alive and sidesteps
	// shared-cache table locks under concurrent handlers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize in-memory schema: %w", err)
	}

	return &Store{db: sqlDB}, nil
}

// NewStoreFromSQL wraps an existing sql.DB as a Store.
func NewStoreFromSQL(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

// DB returns the underlying sql.DB for direct access when needed.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
