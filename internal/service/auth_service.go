package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/middleware"
	"github.com/mmynk/caltrack/internal/rpc"
	"github.com/mmynk/caltrack/internal/session"
)

// AuthService implements the AuthService RPC interface. Every successful
// sign-in opens a client session in the registry and returns a token bound
// to it.
type AuthService struct {
	sessions   *session.Registry
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(sessions *session.Registry, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		sessions:   sessions,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// signIn runs fn against a fresh client session and, on success, waits for
// the session to load the user's document before issuing a token. A nil
// principal with no error leaves the session discarded and reports Pending.
func (s *AuthService) signIn(ctx context.Context, fn func(*auth.Identity) (*auth.Principal, error)) (*rpc.AuthResponse, error) {
	c := s.sessions.Open()

	p, err := fn(c.Identity)
	if err != nil || p == nil {
		s.sessions.Discard(c.ID)
		if err != nil {
			return nil, err
		}
		return &rpc.AuthResponse{State: session.SignedOut.String(), Pending: true}, nil
	}

	state, err := c.Gateway.Await(ctx, p.UID)
	if err != nil {
		if ctx.Err() != nil {
			s.sessions.Discard(c.ID)
			return nil, ctx.Err()
		}
		// The account is signed in but its document could not be read; the
		// session stays Loading and the next request retries.
		s.logger.Warn("Document load failed at sign-in", "user_id", p.UID, "error", err)
	}

	token, err := s.jwtManager.Generate(p, c.ID)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", p.UID, "error", err)
		_ = s.sessions.Close(ctx, c.ID)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return &rpc.AuthResponse{
		Token: token,
		User:  userOf(p),
		State: state.String(),
	}, nil
}

func userOf(p *auth.Principal) *rpc.User {
	return &rpc.User{
		ID:          p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AuthMethod:  p.Method,
	}
}

// Register creates a new user account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[rpc.RegisterRequest]) (*connect.Response[rpc.AuthResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.DisplayName == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email and display name are required"))
	}

	resp, err := s.signIn(ctx, func(id *auth.Identity) (*auth.Principal, error) {
		return id.Register(ctx, req.Msg.Email, req.Msg.DisplayName, req.Msg.Password)
	})
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Msg.Email, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("User registered successfully", "user_id", resp.User.ID, "state", resp.State)
	return connect.NewResponse(resp), nil
}

// Login authenticates with email and password.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[rpc.LoginRequest]) (*connect.Response[rpc.AuthResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	resp, err := s.signIn(ctx, func(id *auth.Identity) (*auth.Principal, error) {
		return id.SignInWithPassword(ctx, req.Msg.Email, req.Msg.Password)
	})
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("User logged in successfully", "user_id", resp.User.ID, "state", resp.State)
	return connect.NewResponse(resp), nil
}

// LoginFederated signs in with a provider ID token. Without a token the
// provider flow is still running and the response is Pending.
func (s *AuthService) LoginFederated(ctx context.Context, req *connect.Request[rpc.LoginFederatedRequest]) (*connect.Response[rpc.AuthResponse], error) {
	resp, err := s.signIn(ctx, func(id *auth.Identity) (*auth.Principal, error) {
		return id.SignInWithFederated(ctx, req.Msg.IDToken)
	})
	if err != nil {
		s.logger.Warn("Federated login failed", "error", err)
		return nil, toConnectError(err)
	}
	if resp.Pending {
		return connect.NewResponse(resp), nil
	}

	s.logger.Info("User logged in via provider", "user_id", resp.User.ID, "state", resp.State)
	return connect.NewResponse(resp), nil
}

// Logout signs the session out. Pending diary changes are written before
// it returns.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[rpc.LogoutRequest]) (*connect.Response[rpc.LogoutResponse], error) {
	c := middleware.ClientFrom(ctx)
	if c == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	if err := s.sessions.SignOut(ctx, c.ID); err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			return connect.NewResponse(&rpc.LogoutResponse{}), nil
		}
		s.logger.Error("Logout flush failed", "session_id", c.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.logger.Info("User logged out", "session_id", c.ID)
	return connect.NewResponse(&rpc.LogoutResponse{}), nil
}
