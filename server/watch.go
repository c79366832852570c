package server

import (
	"context"
	"fmt"
	"net/http/cookiejar"

	"github.com/fartinmartin/convexauth/authstate"
	"github.com/fartinmartin/convexauth/betterauth"
	"github.com/fartinmartin/convexauth/config"
	"github.com/fartinmartin/convexauth/convex"
	"github.com/fartinmartin/convexauth/logger"
	"github.com/fartinmartin/convexauth/token"
)

// Watch follows the better-auth session of a client signed in with a cookie jar
// and logs every change of its reconciled authentication state until ctx is done.
//
// When callbackURL carries a one-time token, it is exchanged for a session first.
func Watch(ctx context.Context, cfg config.Config, l logger.Logger, callbackURL string) error {
	if l == nil {
		l = logger.NewDiscard()
	}

	r, closeAll, err := NewReconciler(cfg, l)
	if err != nil {
		return err
	}
	defer closeAll()

	unsubscribe := r.Subscribe(func(s authstate.State) {
		l.Info("auth state changed", &logger.LogContext{Data: map[string]any{
			"isAuthenticated":             s.IsAuthenticated,
			"isLoading":                   s.IsLoading,
			"isAuthProviderAuthenticated": s.IsAuthProviderAuthenticated,
			"isConvexAuthenticated":       s.IsConvexAuthenticated.String(),
		}})
	})
	defer unsubscribe()

	if callbackURL != "" {
		loc, err := authstate.NewURLLocation(callbackURL)
		if err != nil {
			return err
		}

		if err := r.HandleOneTimeToken(ctx, loc); err != nil {
			l.Warn("exchanging one-time token failed", &logger.LogContext{Error: err})
		}
	}

	<-ctx.Done()
	return nil
}

// NewReconciler wires a Reconciler following better-auth at PUBLIC_CONVEX_SITE_URL
// and confirming its tokens with Convex at PUBLIC_CONVEX_API_URL.
//
// Call closeAll to stop the Reconciler along with the session polling and Convex calls it drives.
func NewReconciler(cfg config.Config, l logger.Logger) (r *authstate.Reconciler, closeAll func(), err error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("could not make cookie jar: %w", err)
	}

	ba, err := betterauth.NewClient(
		cfg.ConvexSiteURL,
		betterauth.WithCookieJar(jar),
		betterauth.WithLogger(l),
	)
	if err != nil {
		return nil, nil, err
	}

	hc, err := convex.NewHTTPClient(cfg.ConvexAPIURL, convex.WithLogger(l))
	if err != nil {
		return nil, nil, err
	}

	provider := betterauth.NewProvider(
		ba,
		betterauth.WithInterval(cfg.SessionPollInterval),
		betterauth.WithPollerLogger(l),
	)

	backend := convex.NewClient(hc, convex.WithClientLogger(l))

	r, err = authstate.New(
		provider,
		backend,
		authstate.WithLogger(l),
		authstate.WithFetcherOpts(token.WithMaxRetries(cfg.TokenMaxRetries)),
	)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, nil, err
	}

	closeAll = func() {
		r.Close()
		provider.Close()
		backend.Close()
	}

	return r, closeAll, nil
}
