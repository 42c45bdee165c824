// Package postgres provides a PostgreSQL implementation of storage.Store.
// Documents live in a jsonb column so partial updates merge server-side.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dbURL and ensures the schema exists.
func New(ctx context.Context, dbURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DB URL: %w", err)
	}
	// Simple protocol avoids "cached plan must not change result type" after
	// schema changes on poolers that keep server-side statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, classify("connect", fmt.Errorf("unable to connect to database: %w", err))
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return classify("ping", s.pool.Ping(ctx))
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return classify("migrate", fmt.Errorf("failed to run migrations: %w", err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (storage.Document, error) {
	var body string
	err := s.pool.QueryRow(ctx,
		"SELECT body::text FROM documents WHERE collection = @collection AND key = @key",
		pgx.NamedArgs{"collection": collection, "key": key},
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s/%s: %w", collection, key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, classify("get document", fmt.Errorf("failed to get document: %w", err))
	}

	var doc storage.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, key string, doc storage.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, key, body, updated_at)
		VALUES (@collection, @key, @body::jsonb, now())
		ON CONFLICT (collection, key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		pgx.NamedArgs{"collection": collection, "key": key, "body": string(body)},
	)
	if err != nil {
		return classify("set document", fmt.Errorf("failed to set document: %w", err))
	}
	return nil
}

// Update merges fields with jsonb concatenation, which replaces top-level keys.
func (s *Store) Update(ctx context.Context, collection, key string, fields storage.Document) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET body = body || @fields::jsonb, updated_at = now()
		WHERE collection = @collection AND key = @key`,
		pgx.NamedArgs{"collection": collection, "key": key, "fields": string(body)},
	)
	if err != nil {
		return classify("update document", fmt.Errorf("failed to update document: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, key, storage.ErrNotFound)
	}
	return nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, auth_method, created_at, updated_at)
		VALUES (@id, @email, @displayName, @passwordHash, @authMethod, @createdAt, @updatedAt)`,
		pgx.NamedArgs{
			"id":           user.ID,
			"email":        user.Email,
			"displayName":  user.DisplayName,
			"passwordHash": user.PasswordHash,
			"authMethod":   string(user.AuthMethod),
			"createdAt":    user.CreatedAt,
			"updatedAt":    user.UpdatedAt,
		},
	)
	if err != nil {
		return classify("create user", fmt.Errorf("failed to create user: %w", err))
	}
	return nil
}

// GetUserByEmail returns nil, nil when no account matches.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

// GetUserByID returns nil, nil when no account matches.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, display_name, password_hash, auth_method, created_at, updated_at
		 FROM users WHERE `+column+` = @value`,
		pgx.NamedArgs{"value": value},
	)
	if err != nil {
		return nil, classify("get user", fmt.Errorf("failed to get user by %s: %w", column, err))
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get user", fmt.Errorf("failed to scan user: %w", err))
	}
	return row.model(), nil
}

type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	DisplayName  string `db:"display_name"`
	PasswordHash string `db:"password_hash"`
	AuthMethod   string `db:"auth_method"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r userRow) model() *models.User {
	return &models.User{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		PasswordHash: r.PasswordHash,
		AuthMethod:   models.AuthMethod(r.AuthMethod),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// classify adds server-side connection failures to storage.Classify.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if pgconn.Timeout(err) {
		return apperr.Unavailable(op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 53: insufficient resources, 57P: operator intervention.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") || strings.HasPrefix(pgErr.Code, "57P") {
			return apperr.Unavailable(op, err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return apperr.Unavailable(op, err)
	}
	return storage.Classify(op, err)
}
