package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/metrics"
	"github.com/mmynk/caltrack/internal/storage"
)

// ErrUnknownSession is returned for session ids the registry does not hold.
var ErrUnknownSession = errors.New("unknown session")

// RevokedCollection holds the ids of signed-out sessions so their tokens
// cannot resume them after a restart.
const RevokedCollection = "revokedSessions"

// Client is one signed-in client: its own identity state and gateway.
type Client struct {
	ID       string
	Identity *auth.Identity
	Gateway  *Gateway
}

// Registry holds the live client sessions of a server process.
type Registry struct {
	cfg         Config
	newIdentity func() *auth.Identity
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Client
	revoked  map[string]struct{}
}

// NewRegistry creates an empty registry. newIdentity builds the per-client
// identity; every client gets its own so auth state never leaks across them.
func NewRegistry(cfg Config, newIdentity func() *auth.Identity) *Registry {
	cfg = cfg.withDefaults()
	return &Registry{
		cfg:         cfg,
		newIdentity: newIdentity,
		logger:      cfg.Logger,
		sessions:    make(map[string]*Client),
		revoked:     make(map[string]struct{}),
	}
}

// Open starts a signed-out client session.
func (r *Registry) Open() *Client {
	return r.add(uuid.New().String())
}

func (r *Registry) add(id string) *Client {
	c := r.newClient(id)
	r.mu.Lock()
	r.sessions[id] = c
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()
	return c
}

func (r *Registry) newClient(id string) *Client {
	identity := r.newIdentity()
	return &Client{
		ID:       id,
		Identity: identity,
		Gateway:  New(r.cfg, identity),
	}
}

// Get returns the client session with id.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	return c, ok
}

// Resume returns the session id, recreating it from p when the process has
// restarted since the token was issued.
func (r *Registry) Resume(ctx context.Context, id string, p *auth.Principal) (*Client, error) {
	if c, ok := r.Get(id); ok {
		if cur := c.Identity.Current(); cur == nil || cur.UID != p.UID {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
		}
		return c, nil
	}

	if err := r.checkRevoked(ctx, id); err != nil {
		return nil, err
	}

	c := r.newClient(id)
	c.Identity.Restore(p)

	r.mu.Lock()
	if existing, ok := r.sessions[id]; ok {
		// Lost a race with a concurrent resume of the same token.
		r.mu.Unlock()
		c.Gateway.unsubscribe()
		return existing, nil
	}
	r.sessions[id] = c
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()

	if _, err := c.Gateway.Await(ctx, p.UID); err != nil && ctx.Err() != nil {
		return nil, err
	}
	r.logger.Info("Session resumed", "session_id", id, "uid", p.UID)
	return c, nil
}

// Close signs the session out, flushing its pending write, and forgets it.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	metrics.ActiveSessions.Dec()

	c.Identity.SignOut()
	_, err := c.Gateway.Await(ctx, "")
	if cerr := c.Gateway.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// SignOut closes the session and revokes its id, so the token that named it
// can no longer resume it.
func (r *Registry) SignOut(ctx context.Context, id string) error {
	r.mu.Lock()
	r.revoked[id] = struct{}{}
	r.mu.Unlock()

	err := r.Close(ctx, id)

	doc, encErr := storage.Encode(map[string]any{"revokedAt": r.cfg.Clock.Now()})
	if encErr == nil {
		encErr = r.cfg.Store.Set(ctx, RevokedCollection, id, doc)
	}
	if encErr != nil {
		// The in-memory revocation still holds until the next restart.
		r.logger.Warn("Failed to persist session revocation", "session_id", id, "error", encErr)
	}
	return err
}

func (r *Registry) checkRevoked(ctx context.Context, id string) error {
	r.mu.Lock()
	_, revoked := r.revoked[id]
	r.mu.Unlock()
	if revoked {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	_, err := r.cfg.Store.Get(ctx, RevokedCollection, id)
	switch {
	case err == nil:
		r.mu.Lock()
		r.revoked[id] = struct{}{}
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return storage.Classify("check session", err)
	}
}

// Discard drops a session that never signed in.
func (r *Registry) Discard(id string) {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		metrics.ActiveSessions.Dec()
		c.Gateway.unsubscribe()
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown closes every session, flushing pending writes.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := r.Close(ctx, id); err != nil && !errors.Is(err, ErrUnknownSession) {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	r.logger.Info("Sessions closed", "count", len(ids))
	return errors.Join(errs...)
}
