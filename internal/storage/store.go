// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/models"
)

// ErrNotFound is returned by Get and Update when no document exists.
var ErrNotFound = apperr.ErrNotFound

// Document is a stored JSON object, kept as raw top-level fields so partial
// updates can replace individual keys without decoding the rest.
type Document map[string]json.RawMessage

// DocumentStore defines the key/value document operations the session
// gateway needs. This abstraction allows swapping storage backends (SQLite,
// PostgreSQL, etc.) without changing the gateway.
//
// Implementations must be strongly consistent per key: a Get after a Set by
// the same caller observes the Set.
type DocumentStore interface {
	// Get returns the document at (collection, key) or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Set creates or replaces the document at (collection, key).
	Set(ctx context.Context, collection, key string, doc Document) error

	// Update merges fields into the existing document, replacing top-level
	// keys. Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, key string, fields Document) error

	// Close releases any resources held by the store.
	Close() error
}

// UserStore is implemented by backends that also hold identity accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is a backend serving both documents and accounts.
type Store interface {
	DocumentStore
	UserStore
}

// Encode converts v (a struct or map) into a Document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	return doc, nil
}

// Decode fills v from doc.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to re-encode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Fields builds a partial Document from individually marshalled values.
func Fields(kv map[string]any) (Document, error) {
	doc := make(Document, len(kv))
	for k, v := range kv {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		doc[k] = raw
	}
	return doc, nil
}

// Merge applies fields on top of base in place.
func Merge(base, fields Document) Document {
	if base == nil {
		base = make(Document, len(fields))
	}
	for k, v := range fields {
		base[k] = v
	}
	return base
}
