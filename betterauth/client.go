package betterauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/http/cookie"
	"github.com/fartinmartin/convexauth/logger"
)

const (
	// BasePath prefixes every better-auth endpoint.
	BasePath = "/api/auth"

	TokenPath              = "/convex/token"
	SignInAnonymousPath    = "/sign-in/anonymous"
	GetSessionPath         = "/get-session"
	VerifyOneTimeTokenPath = "/cross-domain/one-time-token/verify"

	DefaultTimeout = 10 * time.Second
	maxErrBody     = 512
)

// A Client calls a better-auth server.
//
// A Client holding a cookie jar keeps the session cookies it is handed,
// acting as a browser would.
type Client struct {
	base *url.URL
	hc   *http.Client
	jar  http.CookieJar
	l    logger.Logger
}

// A ClientOpt configures a Client when constructing a new one.
type ClientOpt func(*Client)

// WithHTTPClient sets the *http.Client requests go through.
// Redirects are never followed, whatever hc's CheckRedirect says.
func WithHTTPClient(hc *http.Client) ClientOpt {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.hc = &cp
		}
	}
}

// WithCookieJar sets the jar session cookies are kept in.
func WithCookieJar(jar http.CookieJar) ClientOpt {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithLogger sets the logger.Logger a Client logs requests to.
func WithLogger(l logger.Logger) ClientOpt {
	return func(c *Client) {
		if l != nil {
			c.l = l
		}
	}
}

// NewClient constructs a Client for the better-auth server at siteURL,
// e.g. the Convex deployment's site URL.
func NewClient(siteURL string, opts ...ClientOpt) (*Client, error) {
	if siteURL == "" {
		return nil, fmt.Errorf("%w: no better-auth site URL", convexauth.ErrBadConfig)
	}

	u, err := url.Parse(strings.TrimSuffix(siteURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: better-auth site URL %q", convexauth.ErrBadConfig, siteURL)
	}

	c := &Client{
		base: u,
		hc:   &http.Client{Timeout: DefaultTimeout},
		l:    logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.jar != nil {
		c.hc.Jar = c.jar
	}
	c.hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	return c, nil
}

// URL is the absolute URL of the endpoint at path.
func (c *Client) URL(path string) string {
	u := *c.base
	u.Path += BasePath + path
	return u.String()
}

// Token requests a Convex JWT for the session held in the Client's cookies.
// An empty token means better-auth holds no session.
//
// Token implements token.Requester.
func (c *Client) Token(ctx context.Context) (string, error) {
	var body struct {
		Token string `json:"token"`
	}

	if _, err := c.do(ctx, http.MethodGet, TokenPath, "", nil, &body); err != nil {
		return "", err
	}

	return body.Token, nil
}

// SignInAnonymous creates an anonymous user and session,
// returning the cookies better-auth set for it.
func (c *Client) SignInAnonymous(ctx context.Context) ([]*http.Cookie, error) {
	res, err := c.do(ctx, http.MethodPost, SignInAnonymousPath, "", struct{}{}, nil)
	if err != nil {
		return nil, err
	}

	cs := cookie.ParseSetCookie(res.Header)
	c.l.Debug(fmt.Sprintf("anonymous sign-in set %d cookies", len(cs)), nil)

	return cs, nil
}

// GetSession fetches the current session.
// A non-empty bearer authenticates the request instead of the Client's cookies.
//
// Without a session, GetSession returns nil and no error.
func (c *Client) GetSession(ctx context.Context, bearer string) (*convexauth.SessionData, error) {
	var data *convexauth.SessionData
	if _, err := c.do(ctx, http.MethodGet, GetSessionPath, bearer, nil, &data); err != nil {
		return nil, err
	}

	return data, nil
}

// VerifyOneTimeToken exchanges ott for the session it was minted for.
func (c *Client) VerifyOneTimeToken(ctx context.Context, ott string) (*convexauth.SessionData, error) {
	if ott == "" {
		return nil, fmt.Errorf("%w: one-time token", convexauth.ErrMissingData)
	}

	var data *convexauth.SessionData
	in := map[string]string{"token": ott}
	if _, err := c.do(ctx, http.MethodPost, VerifyOneTimeTokenPath, "", in, &data); err != nil {
		return nil, err
	}

	return data, nil
}

// do sends a request to the endpoint at path, decoding a JSON response into out.
//
// Transport failures are returned wrapped, so token.IsNetworkError still sees them.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding %s body: %s", convexauth.ErrUnexpected, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %s", convexauth.ErrUnexpected, err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("better-auth %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	c.l.Debug(fmt.Sprintf("better-auth %s %s %d", method, path, res.StatusCode), nil)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrBody))
		return nil, &StatusError{Method: method, Path: path, Code: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: decoding %s response: %s", convexauth.ErrUnexpected, path, err)
		}
	}

	return res, nil
}
