package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod records how an account signs in.
type AuthMethod string

const (
	AuthMethodEmail     AuthMethod = "email"
	AuthMethodFederated AuthMethod = "federated"
)

// User represents an account held by the identity service.
// It is separate from Profile: an account may exist before its profile does.
type User struct {
	// ID is the unique identifier for the user (UUID format). It doubles as
	// the key of the user's document in the store.
	ID string

	// Email is the user's email address (unique).
	Email string

	// DisplayName is the name shown in the UI.
	DisplayName string

	// PasswordHash is the bcrypt hash. Empty for federated accounts.
	PasswordHash string

	// AuthMethod is how the account was created.
	AuthMethod AuthMethod

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string, method AuthMethod) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		AuthMethod:   method,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
