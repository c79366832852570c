package convex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/logger"
)

const (
	QueryPath = "/api/query"

	// CurrentUserQuery resolves the signed-in user, or null.
	CurrentUserQuery = "auth:getCurrentUser"

	// IsAuthenticatedQuery asserts whether the caller's token was accepted.
	IsAuthenticatedQuery = "auth:isAuthenticated"

	DefaultTimeout = 10 * time.Second
	maxErrBody     = 512
)

// An HTTPClient runs Convex queries over HTTP, authenticated by the token last set.
//
// HTTPClient is safe for concurrent use; construct one per request
// when the token depends on the request.
type HTTPClient struct {
	address string
	hc      *http.Client
	l       logger.Logger

	mu    sync.RWMutex
	token string
}

// An HTTPClientOpt configures an HTTPClient when constructing a new one.
type HTTPClientOpt func(*HTTPClient)

// WithHTTPClient sets the *http.Client queries go through.
func WithHTTPClient(hc *http.Client) HTTPClientOpt {
	return func(c *HTTPClient) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithLogger sets the logger.Logger failed queries are reported to.
func WithLogger(l logger.Logger) HTTPClientOpt {
	return func(c *HTTPClient) {
		if l != nil {
			c.l = l
		}
	}
}

// NewHTTPClient constructs an HTTPClient for the deployment at address,
// e.g. https://happy-otter-123.convex.cloud.
func NewHTTPClient(address string, opts ...HTTPClientOpt) (*HTTPClient, error) {
	u, err := url.Parse(address)
	if address == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: Convex deployment URL %q", convexauth.ErrBadConfig, address)
	}

	c := &HTTPClient{
		address: strings.TrimSuffix(address, "/"),
		hc:      &http.Client{Timeout: DefaultTimeout},
		l:       logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Address is the deployment URL.
func (c *HTTPClient) Address() string { return c.address }

// SetAuth authenticates subsequent queries with tok.
func (c *HTTPClient) SetAuth(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// ClearAuth makes subsequent queries unauthenticated.
func (c *HTTPClient) ClearAuth() { c.SetAuth("") }

type queryRequest struct {
	Path   string `json:"path"`
	Args   any    `json:"args"`
	Format string `json:"format"`
}

type queryResponse struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
	LogLines     []string        `json:"logLines"`
}

// Query runs the query function at path with args, decoding its value into out.
// A nil args sends an empty object.
func (c *HTTPClient) Query(ctx context.Context, path string, args, out any) error {
	if args == nil {
		args = struct{}{}
	}

	b, err := json.Marshal(queryRequest{Path: path, Args: args, Format: "json"})
	if err != nil {
		return fmt.Errorf("%w: encoding args for %s: %s", convexauth.ErrUnexpected, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address+QueryPath, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: building request: %s", convexauth.ErrUnexpected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("convex query %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("convex query %s: reading response: %w", path, err)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil || qr.Status == "" {
		if len(body) > maxErrBody {
			body = body[:maxErrBody]
		}
		return &QueryError{Path: path, Code: res.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	for _, line := range qr.LogLines {
		c.l.Debug(fmt.Sprintf("convex %s: %s", path, line), nil)
	}

	if qr.Status != "success" {
		return &QueryError{Path: path, Code: res.StatusCode, Message: qr.ErrorMessage}
	}

	if out == nil || len(qr.Value) == 0 {
		return nil
	}

	if err := json.Unmarshal(qr.Value, out); err != nil {
		return fmt.Errorf("%w: decoding value of %s: %s", convexauth.ErrUnexpected, path, err)
	}

	return nil
}

// CurrentUser resolves the user the current token belongs to.
// Without a token, CurrentUser returns nil;
// a token the deployment rejects yields a *QueryError.
func (c *HTTPClient) CurrentUser(ctx context.Context) (*convexauth.User, error) {
	var u *convexauth.User
	if err := c.Query(ctx, CurrentUserQuery, nil, &u); err != nil {
		return nil, err
	}

	return u, nil
}

// IsAuthenticated asserts whether the deployment accepts the current token.
func (c *HTTPClient) IsAuthenticated(ctx context.Context) (bool, error) {
	var ok bool
	if err := c.Query(ctx, IsAuthenticatedQuery, nil, &ok); err != nil {
		return false, err
	}

	return ok, nil
}
