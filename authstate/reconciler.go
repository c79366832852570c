package authstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/logger"
	"github.com/fartinmartin/convexauth/token"
)

// A Provider is the auth provider as seen by a Reconciler:
// it pushes Session notifications and hands out tokens.
//
// Subscribe may call fn before returning.
type Provider interface {
	Subscribe(fn func(convexauth.Session)) (unsubscribe func())
	token.Requester
}

// A Backend authenticates its requests with tokens obtained from fetch
// and reports through onChange whether it accepts them.
//
// A call to SetAuth supersedes any earlier one.
type Backend interface {
	SetAuth(fetch convexauth.AccessTokenFunc, onChange func(isAuthenticated bool))
	ClearAuth()
}

// A TokenFetcher retrieves fresh tokens, e.g. [*token.Fetcher].
type TokenFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// A registration is one SetAuth call to the Backend.
// Once cancelled, its confirmations are no longer applied.
type registration struct {
	cancelled bool
}

// A Reconciler follows a Provider's sessions and a Backend's confirmations of them.
//
// Construct a Reconciler with New and pass it to whatever needs the reconciled State.
type Reconciler struct {
	provider    Provider
	backend     Backend
	fetcher     TokenFetcher
	fetcherOpts []token.FetcherOpt
	l           logger.Logger

	// sessionMu serializes session notifications and the registrations they cause.
	sessionMu   sync.Mutex
	unsubscribe func()
	ran         bool
	ranAuthed   bool
	cleanup     func()

	// mu guards the fields below.
	mu           sync.Mutex
	sessionData  *convexauth.SessionData
	pending      bool
	confirmation Confirmation
	current      *registration
	closed       bool
	nextID       uint64
	listeners    map[uint64]func(State)
}

// An Opt configures a Reconciler when constructing a new one.
type Opt func(*Reconciler)

// WithLogger sets the logger.Logger a Reconciler logs to.
func WithLogger(l logger.Logger) Opt {
	return func(r *Reconciler) {
		if l != nil {
			r.l = l
		}
	}
}

// WithTokenFetcher replaces the token.Fetcher built from the Provider.
func WithTokenFetcher(f TokenFetcher) Opt {
	return func(r *Reconciler) {
		r.fetcher = f
	}
}

// WithFetcherOpts configures the token.Fetcher built from the Provider.
func WithFetcherOpts(opts ...token.FetcherOpt) Opt {
	return func(r *Reconciler) {
		r.fetcherOpts = append(r.fetcherOpts, opts...)
	}
}

// New constructs a Reconciler and subscribes it to provider's sessions.
//
// Until the provider reports a session, the State is loading.
func New(provider Provider, backend Backend, opts ...Opt) (*Reconciler, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: no auth provider", convexauth.ErrMissingData)
	}

	if backend == nil {
		return nil, fmt.Errorf("%w: no backend client", convexauth.ErrMissingData)
	}

	r := &Reconciler{
		provider:  provider,
		backend:   backend,
		l:         logger.NewDiscard(),
		pending:   true,
		listeners: make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.fetcher == nil {
		r.fetcher = token.NewFetcher(provider, append([]token.FetcherOpt{token.WithLogger(r.l)}, r.fetcherOpts...)...)
	}

	unsubscribe := provider.Subscribe(r.handleSession)

	r.sessionMu.Lock()
	r.unsubscribe = unsubscribe
	if !r.ran {
		r.reconcile(false)
	}
	r.sessionMu.Unlock()

	return r, nil
}

// State returns the current reconciled State.
//
// State panics on a nil *Reconciler: reading auth state without one is a programming error.
func (r *Reconciler) State() State {
	if r == nil {
		panic("authstate: State called on a nil *Reconciler; construct one with authstate.New")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state()
}

// state derives the State; r.mu must be held.
func (r *Reconciler) state() State {
	return derive(r.pending, r.sessionData != nil, r.confirmation)
}

// IsAuthenticated asserts whether both the provider and the backend accept the session.
func (r *Reconciler) IsAuthenticated() bool { return r.State().IsAuthenticated }

// IsLoading asserts whether either side has yet to answer.
func (r *Reconciler) IsLoading() bool { return r.State().IsLoading }

// Subscribe calls fn with a fresh State after every change.
// Call the returned function to stop.
func (r *Reconciler) Subscribe(fn func(State)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// FetchAccessToken is the convexauth.AccessTokenFunc a Reconciler registers with its Backend.
//
// Without opts.ForceRefreshToken, the Backend still holds a cached token
// and FetchAccessToken returns none.
func (r *Reconciler) FetchAccessToken(ctx context.Context, opts convexauth.FetchTokenOptions) (string, error) {
	if !opts.ForceRefreshToken {
		return "", nil
	}

	tok, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return "", err
	}

	r.l.Debug("returning retrieved token", nil)
	return tok, nil
}

// Close stops following the Provider and clears the Backend's auth.
func (r *Reconciler) Close() {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.current != nil {
		r.current.cancelled = true
		r.current = nil
	}
	r.mu.Unlock()

	if r.unsubscribe != nil {
		r.unsubscribe()
	}

	r.cleanup = nil
	r.backend.ClearAuth()
}

// handleSession applies a notification from the Provider.
func (r *Reconciler) handleSession(s convexauth.Session) {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	wasAuthed := r.sessionData != nil
	r.sessionData = s.Data
	r.pending = s.IsPending

	if wasAuthed && s.Data == nil {
		r.confirmation = Rejected
	}

	// NOTE: back to loading, whatever the backend said no longer holds
	if s.IsPending && r.confirmation != Unknown {
		r.confirmation = Unknown
	}
	r.mu.Unlock()

	r.notify()
	r.reconcile(s.Data != nil)
}

// reconcile registers with or clears the Backend
// when whether the provider holds a session changes.
//
// r.sessionMu must be held.
func (r *Reconciler) reconcile(authed bool) {
	if r.ran && r.ranAuthed == authed {
		return
	}

	r.ran = true
	r.ranAuthed = authed

	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}

	if !authed {
		r.backend.ClearAuth()
		r.cleanup = func() {
			// NOTE: loading again, a new registration is about to start
			r.mu.Lock()
			r.confirmation = Unknown
			r.mu.Unlock()
			r.notify()
		}

		return
	}

	reg := new(registration)
	r.mu.Lock()
	r.current = reg
	r.mu.Unlock()

	r.backend.SetAuth(r.FetchAccessToken, func(isAuthenticated bool) {
		r.confirm(reg, isAuthenticated)
	})

	r.cleanup = func() {
		r.mu.Lock()
		reg.cancelled = true
		if r.current == reg {
			r.current = nil
		}

		// NOTE: the session changed before or after the backend answered;
		// a confirmation must not outlive it
		if r.confirmation == Confirmed {
			r.confirmation = Rejected
		}
		r.mu.Unlock()
		r.notify()
	}
}

// confirm applies the Backend's answer for reg, unless reg has been superseded.
func (r *Reconciler) confirm(reg *registration, isAuthenticated bool) {
	r.mu.Lock()
	if reg.cancelled || r.current != reg {
		r.mu.Unlock()
		r.l.Debug("dropping confirmation for superseded registration", nil)
		return
	}

	if isAuthenticated {
		r.confirmation = Confirmed
	} else {
		r.confirmation = Rejected
	}
	r.mu.Unlock()

	r.notify()
}

// notify calls every listener with the current State.
func (r *Reconciler) notify() {
	r.mu.Lock()
	s := r.state()
	fns := make([]func(State), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
