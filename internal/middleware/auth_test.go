package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/session"
	"github.com/mmynk/caltrack/internal/storage"
)

type stubSessions struct {
	calls  int
	lastID string
	client *session.Client
	err    error
}

func (s *stubSessions) Resume(_ context.Context, id string, _ *auth.Principal) (*session.Client, error) {
	s.calls++
	s.lastID = id
	return s.client, s.err
}

// downStore fails every call the way an unreachable backend does.
type downStore struct{}

func (downStore) Get(context.Context, string, string) (storage.Document, error) {
	return nil, errors.New("connection refused")
}
func (downStore) Set(context.Context, string, string, storage.Document) error {
	return errors.New("connection refused")
}
func (downStore) Update(context.Context, string, string, storage.Document) error {
	return errors.New("connection refused")
}
func (downStore) Close() error { return nil }

type emptyMsg struct{}

func call(t *testing.T, interceptor connect.UnaryInterceptorFunc, header string) (bool, error) {
	t.Helper()
	reached := false
	next := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		reached = true
		if ClientFrom(ctx) != nil {
			t.Error("unexpected client in context")
		}
		return connect.NewResponse(&emptyMsg{}), nil
	})
	req := connect.NewRequest(&emptyMsg{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	_, err := interceptor(next)(context.Background(), req)
	return reached, err
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(&auth.Principal{UID: "u1", Email: "u1@example.com"}, "sess-1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
		{"unknown session", "Bearer " + token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &stubSessions{err: session.ErrUnknownSession}
			reached, err := call(t, RequireAuth(jwtManager, sessions), tt.header)
			if reached {
				t.Fatal("handler ran without a session")
			}
			if connect.CodeOf(err) != connect.CodeUnauthenticated {
				t.Errorf("expected Unauthenticated, got %v", err)
			}
		})
	}

	sessions := &stubSessions{err: errors.New("gone")}
	call(t, RequireAuth(jwtManager, sessions), "Bearer "+token)
	if sessions.calls != 1 || sessions.lastID != "sess-1" {
		t.Errorf("Resume called %d times with %q", sessions.calls, sessions.lastID)
	}
}

func TestOptionalAuth_ProceedsAnonymously(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	sessions := &stubSessions{err: session.ErrUnknownSession}

	for _, header := range []string{"", "Bearer not-a-jwt"} {
		reached, err := call(t, OptionalAuth(jwtManager, sessions), header)
		if err != nil || !reached {
			t.Errorf("header %q: reached=%v err=%v", header, reached, err)
		}
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	if GetUserID(ctx) != "" || GetSessionID(ctx) != "" || ClientFrom(ctx) != nil {
		t.Error("expected empty values from a bare context")
	}
}

func TestRequireAuth_LogsFailedReload(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	p := &auth.Principal{UID: "u1", Email: "u1@example.com"}
	identity := auth.NewIdentity(nil, nil)
	identity.Restore(p)
	gw := session.New(session.Config{
		Store:  downStore{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, identity)
	t.Cleanup(func() { gw.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if state, _ := gw.Await(ctx, p.UID); state != session.Loading {
		t.Fatalf("state = %s, want loading", state)
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(p, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	sessions := &stubSessions{client: &session.Client{ID: "sess-1", Identity: identity, Gateway: gw}}

	reached := false
	next := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		reached = true
		return connect.NewResponse(&emptyMsg{}), nil
	})
	req := connect.NewRequest(&emptyMsg{})
	req.Header().Set("Authorization", "Bearer "+token)
	if _, err := RequireAuth(jwtManager, sessions)(next)(context.Background(), req); err != nil {
		t.Fatalf("RequireAuth: %v", err)
	}
	if !reached {
		t.Error("handler did not run")
	}

	out := buf.String()
	if !strings.Contains(out, "Session reload failed") || !strings.Contains(out, "session_id=sess-1") {
		t.Errorf("reload failure not logged: %q", out)
	}
}
