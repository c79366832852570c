package convex

import (
	"context"
	"sync"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/authstate"
	"github.com/fartinmartin/convexauth/logger"
)

var _ authstate.Backend = (*Client)(nil)

// A Client is a long-lived connection to a deployment that confirms the tokens it is handed.
//
// Each SetAuth fetches a fresh token and asks the deployment whether it accepts it,
// reporting the answer through onChange.
// A later SetAuth or ClearAuth cancels a confirmation still in flight.
type Client struct {
	hc *HTTPClient
	l  logger.Logger

	// mu guards the token installed on hc along with the current generation,
	// so a superseded confirmation never installs its token.
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// A ClientOpt configures a Client when constructing a new one.
type ClientOpt func(*Client)

// WithClientLogger sets the logger.Logger failed confirmations are reported to.
func WithClientLogger(l logger.Logger) ClientOpt {
	return func(c *Client) {
		if l != nil {
			c.l = l
		}
	}
}

// NewClient constructs a Client querying through hc.
func NewClient(hc *HTTPClient, opts ...ClientOpt) *Client {
	c := &Client{hc: hc, l: logger.NewDiscard()}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HTTPClient exposes the HTTPClient, authenticated with the last confirmed token.
func (c *Client) HTTPClient() *HTTPClient { return c.hc }

// SetAuth fetches a token with fetch and confirms it with the deployment in the background.
func (c *Client) SetAuth(fetch convexauth.AccessTokenFunc, onChange func(isAuthenticated bool)) {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		ok := c.confirm(ctx, gen, fetch)
		if ctx.Err() != nil {
			return
		}

		onChange(ok)
	}()
}

func (c *Client) confirm(ctx context.Context, gen uint64, fetch convexauth.AccessTokenFunc) bool {
	tok, err := fetch(ctx, convexauth.FetchTokenOptions{ForceRefreshToken: true})
	if err != nil {
		if ctx.Err() == nil {
			c.l.Warn("fetching token for Convex failed", &logger.LogContext{Error: err})
		}

		return false
	}

	if tok == "" || !c.install(gen, tok) {
		return false
	}

	ok, err := c.hc.IsAuthenticated(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.l.Warn("confirming token with Convex failed", &logger.LogContext{Error: err})
		}

		return false
	}

	return ok
}

// install sets tok on hc unless a later SetAuth or ClearAuth superseded generation gen.
func (c *Client) install(gen uint64, tok string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return false
	}

	c.hc.SetAuth(tok)
	return true
}

// ClearAuth cancels a confirmation in flight and drops the token.
func (c *Client) ClearAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++

	c.hc.ClearAuth()
}

// Close cancels a confirmation in flight and waits for it to return.
func (c *Client) Close() {
	c.ClearAuth()
	c.wg.Wait()
}
