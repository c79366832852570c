package middleware

import (
	"context"
	"net/http"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/convex"
)

// InjectConvex stores a fresh *convex.HTTPClient from newClient
// in the *http.Request.Context of every request under convexauth.ConvexKey.
//
// If newClient is nil, NoopAdapter returns and this middleware does nothing.
func InjectConvex(newClient func() *convex.HTTPClient) Adapter {
	if newClient == nil {
		return NoopAdapter
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), convexauth.ConvexKey, newClient())
			h.ServeHTTP(w, r.Clone(ctx))
		})
	}
}

// GetConvex retrieves the *convex.HTTPClient InjectConvex stored in ctx.
func GetConvex(ctx context.Context) (*convex.HTTPClient, bool) {
	c, ok := ctx.Value(convexauth.ConvexKey).(*convex.HTTPClient)
	return c, ok && c != nil
}
