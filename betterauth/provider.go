package betterauth

import (
	"context"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/authstate"
)

var (
	_ authstate.Provider    = (*Provider)(nil)
	_ authstate.CrossDomain = (*Provider)(nil)
)

// A Provider is better-auth as an auth provider a Reconciler can follow:
// sessions from a SessionPoller, tokens and one-time token exchanges from a Client.
type Provider struct {
	c *Client
	p *SessionPoller
}

// NewProvider constructs a Provider polling c for sessions.
// Give c a cookie jar so the sessions it is handed persist between requests.
func NewProvider(c *Client, opts ...PollerOpt) *Provider {
	return &Provider{c: c, p: NewSessionPoller(c, opts...)}
}

func (p *Provider) Subscribe(fn func(convexauth.Session)) (unsubscribe func()) {
	return p.p.Subscribe(fn)
}

func (p *Provider) Token(ctx context.Context) (string, error) { return p.c.Token(ctx) }

func (p *Provider) VerifyOneTimeToken(ctx context.Context, ott string) (*convexauth.SessionData, error) {
	return p.c.VerifyOneTimeToken(ctx, ott)
}

func (p *Provider) GetSession(ctx context.Context, bearer string) (*convexauth.SessionData, error) {
	return p.c.GetSession(ctx, bearer)
}

// RefreshSession polls for the session right away.
func (p *Provider) RefreshSession() { p.p.Refresh() }

// Close stops polling.
func (p *Provider) Close() { p.p.Close() }
