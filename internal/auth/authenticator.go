package auth

import (
	"context"

	"github.com/mmynk/caltrack/internal/models"
)

// Authenticator defines the interface for credential-based authentication.
// This abstraction allows swapping between different auth methods (password, passkeys, etc.)
// without changing the Identity or service layer code.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	// Returns the created user or an error if registration fails.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

// UserStorage defines the interface for user persistence operations.
// This allows the authenticators to be independent of the storage implementation.
// Lookups return nil, nil when no user matches.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Principal is the identity of a signed-in user as seen by the rest of the
// system. Its UID keys the user's document in the store.
type Principal struct {
	UID         string
	Email       string
	DisplayName string
	Method      models.AuthMethod
}

// PrincipalOf converts an account to its principal.
func PrincipalOf(u *models.User) *Principal {
	return &Principal{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Method:      u.AuthMethod,
	}
}
