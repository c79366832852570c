package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/betterauth"
	"github.com/fartinmartin/convexauth/convex"
	"github.com/fartinmartin/convexauth/http/cookie"
	"github.com/fartinmartin/convexauth/logger"
)

// An AnonymousSigner signs visitors in anonymously, e.g. [*betterauth.Client].
type AnonymousSigner interface {
	SignInAnonymous(ctx context.Context) ([]*http.Cookie, error)
}

type authenticator struct {
	signer  AnonymousSigner
	cache   UserCacher
	l       logger.Logger
	secure  bool
	skipped []string
	now     func() time.Time
}

// An AuthenticateOpt configures Authenticate.
type AuthenticateOpt func(*authenticator)

// WithUserCache sets the UserCacher users are looked up in before querying Convex.
func WithUserCache(c UserCacher) AuthenticateOpt {
	return func(a *authenticator) {
		a.cache = c
	}
}

// WithAuthLogger sets the logger.Logger failures to authenticate are reported to.
func WithAuthLogger(l logger.Logger) AuthenticateOpt {
	return func(a *authenticator) {
		if l != nil {
			a.l = l
		}
	}
}

// WithSecureCookies sets whether the JWT cookie carries the __Secure- prefix.
func WithSecureCookies(secure bool) AuthenticateOpt {
	return func(a *authenticator) {
		a.secure = secure
	}
}

// WithSkippedPrefix adds a path prefix Authenticate leaves alone.
func WithSkippedPrefix(prefix string) AuthenticateOpt {
	return func(a *authenticator) {
		if prefix != "" {
			a.skipped = append(a.skipped, prefix)
		}
	}
}

// Authenticate resolves the current user of every request
// and stores it in the *http.Request.Context under convexauth.CurrentUserKey,
// along with its JWT under convexauth.TokenKey.
//
// The JWT is read from the better-auth cookie.
// Without one, the visitor is signed in anonymously through signer
// and the cookies set by better-auth are forwarded to the response.
// When Convex rejects the JWT, or it has expired,
// the cookie is deleted and the visitor is signed in anonymously once more.
//
// Requests under betterauth.BasePath are passed on untouched.
// Failures never fail the request; it is served without a user.
//
// Authenticate reads the *convex.HTTPClient InjectConvex stores;
// without one, or without signer, NoopAdapter returns.
func Authenticate(signer AnonymousSigner, opts ...AuthenticateOpt) Adapter {
	if signer == nil {
		return NoopAdapter
	}

	a := &authenticator{
		signer:  signer,
		l:       logger.NewDiscard(),
		skipped: []string{betterauth.BasePath},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := GetConvex(r.Context())
			if !ok || a.skip(r.URL.Path) {
				h.ServeHTTP(w, r)
				return
			}

			cw := cookie.Wrap(w)
			store := cookie.NewStore(cw, r, cookie.WithLogger(a.l))

			if user, tok := a.resolve(r, store, c); user != nil {
				ctx := context.WithValue(r.Context(), convexauth.CurrentUserKey, user)
				ctx = context.WithValue(ctx, convexauth.TokenKey, tok)
				r = r.Clone(ctx)
			}

			h.ServeHTTP(cw, r)
		})
	}
}

func (a *authenticator) skip(path string) bool {
	for _, prefix := range a.skipped {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// resolve finds the user for the request, signing in anonymously when needed.
func (a *authenticator) resolve(r *http.Request, store *cookie.Store, c *convex.HTTPClient) (*convexauth.User, string) {
	ctx := r.Context()
	name := betterauth.CookieName(a.secure)

	tok, ok := store.Get(name)
	if !ok || tok == "" {
		tok = a.signIn(r, store)
	}

	if tok == "" {
		return nil, ""
	}

	user, err := a.lookup(ctx, c, tok)
	if err == nil && user != nil {
		return user, tok
	}

	if err != nil && !errors.Is(err, errRejected) {
		a.l.Warn("resolving current user failed", &logger.LogContext{Error: err, Request: r})
		return nil, ""
	}

	// NOTE: the token is invalid or expired, drop it and start over
	store.Delete(name, cookie.DefaultPath)
	if tok = a.signIn(r, store); tok == "" {
		return nil, ""
	}

	user, err = a.lookup(ctx, c, tok)
	if err != nil {
		a.l.Warn("resolving current user after signing in again failed", &logger.LogContext{Error: err, Request: r})
		return nil, ""
	}

	if user == nil {
		return nil, ""
	}

	return user, tok
}

var errRejected = errors.New("token rejected")

// lookup resolves the user tok belongs to, from the cache if possible.
//
// A token Convex refuses, or one that has expired, yields errRejected.
func (a *authenticator) lookup(ctx context.Context, c *convex.HTTPClient, tok string) (*convexauth.User, error) {
	if expired, err := betterauth.TokenExpired(tok, a.now()); err != nil || expired {
		return nil, errRejected
	}

	if a.cache != nil {
		if u, ok := a.cache.Get(ctx, tok); ok {
			c.SetAuth(tok)
			return u, nil
		}
	}

	c.SetAuth(tok)
	u, err := c.CurrentUser(ctx)
	if err != nil {
		var qe *convex.QueryError
		if errors.As(err, &qe) {
			return nil, errRejected
		}

		return nil, err
	}

	if u == nil {
		return nil, errRejected
	}

	if a.cache != nil {
		a.cache.Set(ctx, tok, u)
	}

	return u, nil
}

// signIn signs the visitor in anonymously, forwarding better-auth's cookies,
// and returns the JWT it was issued.
func (a *authenticator) signIn(r *http.Request, store *cookie.Store) string {
	cs, err := a.signer.SignInAnonymous(r.Context())
	if err != nil {
		a.l.Warn("anonymous sign-in failed", &logger.LogContext{Error: err, Request: r})
		return ""
	}

	cookie.Forward(store, cs)

	tok := betterauth.JWTFromCookies(cs)
	if tok == "" {
		a.l.Debug("anonymous sign-in set no JWT cookie", &logger.LogContext{Request: r})
	}

	return tok
}
