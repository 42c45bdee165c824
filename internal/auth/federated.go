package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/caltrack/internal/models"
)

// ErrInvalidIDToken is returned for federated credentials that fail verification.
var ErrInvalidIDToken = errors.New("invalid federated ID token")

// IDTokenClaims are the claims read from a federated provider's ID token.
type IDTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// FederatedVerifier checks ID tokens from an external identity provider and
// maps them to local accounts, creating one on first sign-in.
type FederatedVerifier struct {
	issuer  string
	secret  []byte
	storage UserStorage
}

// NewFederatedVerifier trusts HS256 ID tokens signed with secret by issuer.
func NewFederatedVerifier(issuer, secret string, storage UserStorage) *FederatedVerifier {
	return &FederatedVerifier{
		issuer:  issuer,
		secret:  []byte(secret),
		storage: storage,
	}
}

// Verify validates idToken and returns the matching account.
func (v *FederatedVerifier) Verify(ctx context.Context, idToken string) (*models.User, error) {
	token, err := jwt.ParseWithClaims(idToken, &IDTokenClaims{},
		func(*jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	claims, ok := token.Claims.(*IDTokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidIDToken
	}

	email, err := NormalizeEmail(claims.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	user, err := v.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	name := claims.Name
	if name == "" {
		name = email
	}
	user = models.NewUser(email, name, "", models.AuthMethodFederated)
	if err := v.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
