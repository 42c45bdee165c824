package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrFederatedDisabled is returned when no federated verifier is configured.
var ErrFederatedDisabled = errors.New("federated sign-in is not configured")

// Identity is one client's view of the identity service: who is signed in,
// plus a subscription to changes of that answer.
//
// Listeners run on their own goroutine and receive values through a one-slot
// mailbox, so a slow listener only ever sees the most recent principal.
type Identity struct {
	authenticator Authenticator
	federated     *FederatedVerifier

	mu      sync.Mutex
	current *Principal
	subs    map[int]*subscriber
	nextID  int
}

type subscriber struct {
	fn      func(*Principal)
	mailbox chan *Principal
	done    chan struct{}
}

// NewIdentity creates a signed-out identity. federated may be nil.
func NewIdentity(authenticator Authenticator, federated *FederatedVerifier) *Identity {
	return &Identity{
		authenticator: authenticator,
		federated:     federated,
		subs:          make(map[int]*subscriber),
	}
}

// Current returns the signed-in principal, or nil.
func (i *Identity) Current() *Principal {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// Subscribe registers fn for auth-state changes. fn is called once with the
// current value and then after every change. The returned func unsubscribes.
func (i *Identity) Subscribe(fn func(*Principal)) (unsubscribe func()) {
	s := &subscriber{
		fn:      fn,
		mailbox: make(chan *Principal, 1),
		done:    make(chan struct{}),
	}

	i.mu.Lock()
	id := i.nextID
	i.nextID++
	i.subs[id] = s
	s.post(i.current)
	i.mu.Unlock()

	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			delete(i.subs, id)
			i.mu.Unlock()
			close(s.done)
		})
	}
}

// SignInWithPassword authenticates with email and password.
func (i *Identity) SignInWithPassword(ctx context.Context, email, password string) (*Principal, error) {
	user, err := i.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p := PrincipalOf(user)
	i.set(p)
	return p, nil
}

// SignInWithFederated signs in with a provider ID token. An empty credential
// means the provider redirect has not completed yet: it returns nil, nil and
// the auth state is left unchanged.
func (i *Identity) SignInWithFederated(ctx context.Context, credential string) (*Principal, error) {
	if credential == "" {
		return nil, nil
	}
	if i.federated == nil {
		return nil, ErrFederatedDisabled
	}
	user, err := i.federated.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	p := PrincipalOf(user)
	i.set(p)
	return p, nil
}

// Register creates a password account and signs it in.
func (i *Identity) Register(ctx context.Context, email, displayName, password string) (*Principal, error) {
	user, err := i.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		return nil, err
	}
	p := PrincipalOf(user)
	i.set(p)
	return p, nil
}

// Restore re-establishes a principal already proven by a session token.
func (i *Identity) Restore(p *Principal) {
	i.set(p)
}

// SignOut clears the principal and notifies listeners.
func (i *Identity) SignOut() {
	i.set(nil)
}

func (i *Identity) set(p *Principal) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = p
	for _, s := range i.subs {
		s.post(p)
	}
}

// post replaces any undelivered value with p. Callers hold Identity.mu so
// posts are ordered.
func (s *subscriber) post(p *Principal) {
	for {
		select {
		case s.mailbox <- p:
			return
		default:
		}
		select {
		case <-s.mailbox:
		default:
		}
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case p := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(p)
		}
	}
}
