// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/caltrack/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
// Documents are kept as JSON text in a single table keyed by (collection, key).
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
// The special path ":memory:" opens a private in-memory database.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return storage.Classify("ping", s.db.PingContext(ctx))
}

// Get returns the document stored at (collection, key).
func (s *SQLiteStore) Get(ctx context.Context, collection, key string) (storage.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s/%s: %w", collection, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Classify("get document", fmt.Errorf("failed to get document: %w", err))
	}

	var doc storage.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

// Set creates or replaces the document at (collection, key).
func (s *SQLiteStore) Set(ctx context.Context, collection, key string, doc storage.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, key, string(body), time.Now().Unix(),
	)
	if err != nil {
		return storage.Classify("set document", fmt.Errorf("failed to set document: %w", err))
	}
	return nil
}

// Update merges fields into the existing document at (collection, key).
func (s *SQLiteStore) Update(ctx context.Context, collection, key string, fields storage.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Classify("update document", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return fmt.Errorf("document %s/%s: %w", collection, key, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Classify("update document", fmt.Errorf("failed to read document: %w", err))
	}

	var doc storage.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("failed to decode document %s/%s: %w", collection, key, err)
	}
	merged, err := json.Marshal(storage.Merge(doc, fields))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND key = ?",
		string(merged), time.Now().Unix(), collection, key,
	)
	if err != nil {
		return storage.Classify("update document", fmt.Errorf("failed to update document: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return storage.Classify("update document", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}
