package middleware

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// SessionIDKey is the context key for the client session ID.
	SessionIDKey contextKey = "session_id"
	// ClientKey is the context key for the resolved *session.Client.
	ClientKey contextKey = "client"
)

// Sessions resolves a token's session, recreating it if needed.
type Sessions interface {
	Resume(ctx context.Context, id string, p *auth.Principal) (*session.Client, error)
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetSessionID extracts the session ID from the context.
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

// ClientFrom returns the session client attached by RequireAuth or
// OptionalAuth, or nil.
func ClientFrom(ctx context.Context) *session.Client {
	c, _ := ctx.Value(ClientKey).(*session.Client)
	return c
}

// WithClient attaches c to ctx the way the auth interceptors do.
func WithClient(ctx context.Context, c *session.Client) context.Context {
	ctx = context.WithValue(ctx, ClientKey, c)
	ctx = context.WithValue(ctx, SessionIDKey, c.ID)
	if p := c.Identity.Current(); p != nil {
		ctx = context.WithValue(ctx, UserIDKey, p.UID)
	}
	return ctx
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// resolve validates token and returns its live session.
func resolve(ctx context.Context, jwtManager *auth.JWTManager, sessions Sessions, token string) (*session.Client, error) {
	claims, err := jwtManager.Validate(token)
	if err != nil {
		return nil, err
	}
	c, err := sessions.Resume(ctx, claims.SessionID(), claims.Principal())
	if err != nil {
		return nil, err
	}
	// A load that failed earlier is retried on the next request.
	if c.Gateway.State() == session.Loading {
		if state, err := c.Gateway.Reload(ctx); err != nil {
			slog.DebugContext(ctx, "Session reload failed",
				"session_id", c.ID,
				"state", state.String(),
				"error", err,
			)
		}
	}
	return c, nil
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// The token's session is resolved through sessions and attached to the
// request context together with the user and session IDs.
func RequireAuth(jwtManager *auth.JWTManager, sessions Sessions) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			c, err := resolve(ctx, jwtManager, sessions, tokenString)
			if err != nil {
				if ctx.Err() != nil {
					return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
				}
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithClient(ctx, c), req)
		}
	}
}

// OptionalAuth returns a middleware that validates JWT tokens if present, but allows
// requests without authentication. The auth service uses it so Logout can
// find its session while Register and Login need none.
func OptionalAuth(jwtManager *auth.JWTManager, sessions Sessions) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if tokenString, ok := bearerToken(req.Header().Get("Authorization")); ok {
				// Errors are ignored; the request proceeds anonymously.
				if c, err := resolve(ctx, jwtManager, sessions, tokenString); err == nil {
					ctx = WithClient(ctx, c)
				}
			}
			return next(ctx, req)
		}
	}
}
