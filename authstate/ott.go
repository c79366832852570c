package authstate

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/fartinmartin/convexauth"
)

// OneTimeTokenParam is the query parameter carrying a one-time token.
const OneTimeTokenParam = "ott"

// CrossDomain is implemented by Providers able to exchange one-time tokens for sessions.
type CrossDomain interface {
	// VerifyOneTimeToken exchanges a one-time token for a session.
	VerifyOneTimeToken(ctx context.Context, token string) (*convexauth.SessionData, error)

	// GetSession fetches the session authenticated by the bearer token.
	GetSession(ctx context.Context, bearer string) (*convexauth.SessionData, error)

	// RefreshSession asks the Provider to report its session anew.
	RefreshSession()
}

// A Location is where a one-time token may be found: the URL the user is looking at.
type Location interface {
	URL() *url.URL

	// Replace changes the visible URL without navigating.
	Replace(u *url.URL)
}

// HandleOneTimeToken consumes the one-time token in loc's query, if any,
// exchanging it for a session with the Provider.
//
// The token is stripped from loc whether or not the exchange succeeds;
// it is single-use either way.
// Providers not implementing CrossDomain leave loc untouched.
func (r *Reconciler) HandleOneTimeToken(ctx context.Context, loc Location) error {
	u := loc.URL()
	if u == nil {
		return nil
	}

	stripped := *u
	q := stripped.Query()
	ott := q.Get(OneTimeTokenParam)
	if ott == "" {
		return nil
	}

	cd, ok := r.provider.(CrossDomain)
	if !ok {
		return nil
	}

	q.Del(OneTimeTokenParam)
	stripped.RawQuery = q.Encode()
	defer loc.Replace(&stripped)

	data, err := cd.VerifyOneTimeToken(ctx, ott)
	if err != nil {
		return fmt.Errorf("verifying one-time token: %w", err)
	}

	if data == nil || data.Session.Token == "" {
		r.l.Debug("one-time token yielded no session", nil)
		return nil
	}

	if _, err := cd.GetSession(ctx, data.Session.Token); err != nil {
		return fmt.Errorf("fetching session for one-time token: %w", err)
	}

	cd.RefreshSession()
	return nil
}

// A URLLocation is a Location held in memory,
// e.g. the callback URL a command line client was handed.
type URLLocation struct {
	mu sync.Mutex
	u  url.URL
}

// NewURLLocation parses raw into a *URLLocation.
func NewURLLocation(raw string) (*URLLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: location %q: %s", convexauth.ErrNotValid, raw, err)
	}

	return &URLLocation{u: *u}, nil
}

// URL returns a copy of the current URL.
func (l *URLLocation) URL() *url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.u
	return &u
}

// Replace sets the current URL.
func (l *URLLocation) Replace(u *url.URL) {
	if u == nil {
		return
	}

	l.mu.Lock()
	l.u = *u
	l.mu.Unlock()
}
