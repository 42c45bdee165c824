package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/storage"
)

const userColumns = "id, email, display_name, password_hash, auth_method, created_at, updated_at"

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		string(user.AuthMethod),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return storage.Classify("create user", fmt.Errorf("failed to create user: %w", err))
	}

	return nil
}

// GetUserByEmail retrieves a user by their email address.
// Returns nil, nil when no such user exists.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, storage.Classify("get user", fmt.Errorf("failed to get user by email: %w", err))
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
// Returns nil, nil when no such user exists.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storage.Classify("get user", fmt.Errorf("failed to get user by ID: %w", err))
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var method string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&method,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, err
	}
	user.AuthMethod = models.AuthMethod(method)
	return user, nil
}
