package authstate_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/authstate"
)

type fakeProvider struct {
	mu           sync.Mutex
	fn           func(convexauth.Session)
	unsubscribed bool
	tokens       []string
	tokenCalls   int

	verified  []string
	bearers   []string
	refreshes int
	verifyErr error
}

func (p *fakeProvider) Subscribe(fn func(convexauth.Session)) func() {
	p.mu.Lock()
	p.fn = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.unsubscribed = true
		p.mu.Unlock()
	}
}

func (p *fakeProvider) publish(s convexauth.Session) {
	p.mu.Lock()
	fn := p.fn
	p.mu.Unlock()
	fn(s)
}

func (p *fakeProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tokenCalls++
	if len(p.tokens) == 0 {
		return "", nil
	}
	tok := p.tokens[0]
	p.tokens = p.tokens[1:]
	return tok, nil
}

type crossDomainProvider struct {
	*fakeProvider
}

func (p crossDomainProvider) VerifyOneTimeToken(ctx context.Context, ott string) (*convexauth.SessionData, error) {
	p.verified = append(p.verified, ott)
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return &convexauth.SessionData{Session: convexauth.SessionRecord{Token: "bearer-" + ott}}, nil
}

func (p crossDomainProvider) GetSession(ctx context.Context, bearer string) (*convexauth.SessionData, error) {
	p.bearers = append(p.bearers, bearer)
	return &convexauth.SessionData{}, nil
}

func (p crossDomainProvider) RefreshSession() { p.refreshes++ }

type registered struct {
	fetch    convexauth.AccessTokenFunc
	onChange func(bool)
}

type fakeBackend struct {
	mu     sync.Mutex
	regs   []registered
	clears int
}

func (b *fakeBackend) SetAuth(fetch convexauth.AccessTokenFunc, onChange func(bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs = append(b.regs, registered{fetch, onChange})
}

func (b *fakeBackend) ClearAuth() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clears++
}

func (b *fakeBackend) last(t *testing.T) registered {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.regs)
	return b.regs[len(b.regs)-1]
}

func sessionFor(id string) convexauth.Session {
	return convexauth.Session{Data: &convexauth.SessionData{
		Session: convexauth.SessionRecord{ID: "s-" + id, Token: "t-" + id, UserID: id},
		User:    convexauth.ProviderUser{ID: id},
	}}
}

func setup(t *testing.T) (*fakeProvider, *fakeBackend, *authstate.Reconciler) {
	t.Helper()
	p := &fakeProvider{}
	b := &fakeBackend{}
	r, err := authstate.New(p, b)
	require.Nil(t, err)
	return p, b, r
}

func TestNew(t *testing.T) {
	// Arrange
	p := &fakeProvider{}
	b := &fakeBackend{}

	// Act
	_, errP := authstate.New(nil, b)
	_, errB := authstate.New(p, nil)
	r, err := authstate.New(p, b)

	// Assert
	require.ErrorIs(t, errP, convexauth.ErrMissingData)
	require.ErrorIs(t, errB, convexauth.ErrMissingData)
	require.Nil(t, err)
	s := r.State()
	require.True(t, s.IsLoading)
	require.False(t, s.IsAuthenticated)
	require.Equal(t, 1, b.clears)
	require.Empty(t, b.regs)
}

func TestStateNilReconciler(t *testing.T) {
	// Arrange
	var r *authstate.Reconciler

	// Act + Assert
	require.Panics(t, func() { r.State() })
}

func TestReconcilerSessionSequence(t *testing.T) {
	// Arrange
	p, b, r := setup(t)

	// Act + Assert
	p.publish(convexauth.Session{IsPending: true})
	require.True(t, r.IsLoading())

	p.publish(sessionFor("u1"))
	s := r.State()
	require.True(t, s.IsAuthProviderAuthenticated)
	require.True(t, s.IsLoading)
	require.Len(t, b.regs, 1)

	b.last(t).onChange(true)
	s = r.State()
	require.False(t, s.IsLoading)
	require.True(t, s.IsAuthenticated)
	require.Equal(t, authstate.Confirmed, s.IsConvexAuthenticated)

	p.publish(convexauth.Session{})
	s = r.State()
	require.False(t, s.IsLoading)
	require.False(t, s.IsAuthenticated)
	require.False(t, s.IsAuthProviderAuthenticated)
	require.Equal(t, authstate.Rejected, s.IsConvexAuthenticated)
	require.Equal(t, 2, b.clears)
}

func TestReconcilerRejected(t *testing.T) {
	// Arrange
	p, b, r := setup(t)
	p.publish(sessionFor("u1"))

	// Act
	b.last(t).onChange(false)

	// Assert
	s := r.State()
	require.False(t, s.IsLoading)
	require.False(t, s.IsAuthenticated)
	require.True(t, s.IsAuthProviderAuthenticated)
	require.Equal(t, authstate.Rejected, s.IsConvexAuthenticated)
}

func TestReconcilerSameAuthednessDoesNotReregister(t *testing.T) {
	// Arrange
	p, b, _ := setup(t)

	// Act
	p.publish(sessionFor("u1"))
	p.publish(sessionFor("u2"))

	// Assert
	require.Len(t, b.regs, 1)
}

func TestReconcilerDropsSupersededConfirmation(t *testing.T) {
	// Arrange
	p, b, r := setup(t)
	p.publish(sessionFor("u1"))
	stale := b.last(t)
	p.publish(convexauth.Session{})
	p.publish(sessionFor("u2"))
	require.Len(t, b.regs, 2)

	// Act
	stale.onChange(true)

	// Assert
	s := r.State()
	require.True(t, s.IsLoading)
	require.False(t, s.IsAuthenticated)
	require.Equal(t, authstate.Unknown, s.IsConvexAuthenticated)

	b.last(t).onChange(true)
	require.True(t, r.IsAuthenticated())
}

func TestReconcilerPendingResetsConfirmation(t *testing.T) {
	// Arrange
	p, b, r := setup(t)
	p.publish(sessionFor("u1"))
	b.last(t).onChange(true)

	// Act
	s := sessionFor("u1")
	s.IsPending = true
	p.publish(s)

	// Assert
	state := r.State()
	require.True(t, state.IsLoading)
	require.False(t, state.IsAuthenticated)
	require.Equal(t, authstate.Unknown, state.IsConvexAuthenticated)
}

func TestReconcilerSubscribe(t *testing.T) {
	// Arrange
	p, b, r := setup(t)
	var got []authstate.State
	unsubscribe := r.Subscribe(func(s authstate.State) { got = append(got, s) })

	// Act
	p.publish(sessionFor("u1"))
	b.last(t).onChange(true)
	unsubscribe()
	p.publish(convexauth.Session{})

	// Assert
	require.NotEmpty(t, got)
	assert.True(t, got[len(got)-1].IsAuthenticated)
	for _, s := range got {
		assert.True(t, s.IsAuthProviderAuthenticated)
	}
}

func TestFetchAccessToken(t *testing.T) {
	// Arrange
	tcs := []struct {
		name     string
		force    bool
		expected string
		calls    int
	}{
		{"Cached", false, "", 0},
		{"Forced", true, "jwt", 1},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{tokens: []string{"jwt"}}
			r, err := authstate.New(p, &fakeBackend{})
			require.Nil(t, err)

			// Act
			tok, err := r.FetchAccessToken(context.Background(), convexauth.FetchTokenOptions{ForceRefreshToken: tc.force})

			// Assert
			require.Nil(t, err)
			require.Equal(t, tc.expected, tok)
			require.Equal(t, tc.calls, p.tokenCalls)
		})
	}
}

func TestFetchAccessTokenCustomFetcher(t *testing.T) {
	// Arrange
	sentinel := errors.New("boom")
	p := &fakeProvider{}
	r, err := authstate.New(p, &fakeBackend{}, authstate.WithTokenFetcher(fetcherFunc(func(ctx context.Context) (string, error) {
		return "", sentinel
	})))
	require.Nil(t, err)

	// Act
	_, err = r.FetchAccessToken(context.Background(), convexauth.FetchTokenOptions{ForceRefreshToken: true})

	// Assert
	require.ErrorIs(t, err, sentinel)
	require.Zero(t, p.tokenCalls)
}

type fetcherFunc func(ctx context.Context) (string, error)

func (fn fetcherFunc) Fetch(ctx context.Context) (string, error) { return fn(ctx) }

func TestClose(t *testing.T) {
	// Arrange
	p, b, r := setup(t)
	p.publish(sessionFor("u1"))
	reg := b.last(t)

	// Act
	r.Close()
	r.Close()
	reg.onChange(true)
	p.publish(convexauth.Session{})

	// Assert
	require.True(t, p.unsubscribed)
	require.Equal(t, 2, b.clears)
	require.False(t, r.IsAuthenticated())
	require.True(t, r.State().IsAuthProviderAuthenticated)
}

func TestHandleOneTimeToken(t *testing.T) {
	t.Run("Exchanged", func(t *testing.T) {
		// Arrange
		p := crossDomainProvider{&fakeProvider{}}
		r, err := authstate.New(p, &fakeBackend{})
		require.Nil(t, err)
		loc, err := authstate.NewURLLocation("https://app.example.com/cb?ott=abc&next=%2Fhome")
		require.Nil(t, err)

		// Act
		err = r.HandleOneTimeToken(context.Background(), loc)

		// Assert
		require.Nil(t, err)
		require.Equal(t, []string{"abc"}, p.verified)
		require.Equal(t, []string{"bearer-abc"}, p.bearers)
		require.Equal(t, 1, p.refreshes)
		require.Equal(t, url.Values{"next": {"/home"}}, loc.URL().Query())

		// Act again: nothing left to exchange
		require.Nil(t, r.HandleOneTimeToken(context.Background(), loc))
		require.Len(t, p.verified, 1)
	})

	t.Run("Failed", func(t *testing.T) {
		// Arrange
		sentinel := errors.New("expired")
		p := crossDomainProvider{&fakeProvider{verifyErr: sentinel}}
		r, err := authstate.New(p, &fakeBackend{})
		require.Nil(t, err)
		loc, err := authstate.NewURLLocation("https://app.example.com/cb?ott=abc")
		require.Nil(t, err)

		// Act
		err = r.HandleOneTimeToken(context.Background(), loc)

		// Assert
		require.ErrorIs(t, err, sentinel)
		require.Empty(t, loc.URL().RawQuery)
		require.Empty(t, p.bearers)
		require.Zero(t, p.refreshes)
	})

	t.Run("Unsupported", func(t *testing.T) {
		// Arrange
		r, err := authstate.New(&fakeProvider{}, &fakeBackend{})
		require.Nil(t, err)
		loc, err := authstate.NewURLLocation("https://app.example.com/cb?ott=abc")
		require.Nil(t, err)

		// Act
		err = r.HandleOneTimeToken(context.Background(), loc)

		// Assert
		require.Nil(t, err)
		require.Equal(t, "ott=abc", loc.URL().RawQuery)
	})
}

func TestNewURLLocation(t *testing.T) {
	// Act
	_, err := authstate.NewURLLocation("://nope")

	// Assert
	require.ErrorIs(t, err, convexauth.ErrNotValid)
}
