package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/fartinmartin/convexauth"
)

// CurrentUser retrieves the *convexauth.User Authenticate stored in ctx.
func CurrentUser(ctx context.Context) (*convexauth.User, bool) {
	u, ok := ctx.Value(convexauth.CurrentUserKey).(*convexauth.User)
	return u, ok && u != nil
}

// CurrentToken retrieves the JWT Authenticate resolved the current user with.
func CurrentToken(ctx context.Context) string {
	tok, _ := ctx.Value(convexauth.TokenKey).(string)
	return tok
}

// RequireAuthed returns a middleware.Adapter that checks whether a User is authenticated,
// and requires they be authenticated.
// When the User is authenticated, then RequireAuthed hands off to the next part of the middleware chain.
//
// Authenticated means Authenticate resolved a User, anonymous or not.
//
// When the User is not authenticated, and the request's "Accept" header has "application/json" in it
// or loginURL is empty, RequireAuthed writes 401 to the client.
// Otherwise, RequireAuthed redirects to loginURL.
//
// The URL originally requested is appended to as a "next" query param
// when the request method is GET.
func RequireAuthed(loginURL string) Adapter {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentUser(r.Context()); ok {
				handler.ServeHTTP(w, r)
				return
			}

			if loginURL == "" || acceptsJSON(r.Header) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			u := loginURL
			if r.Method == http.MethodGet {
				u += "?next=" + url.QueryEscape(r.URL.String())
			}

			http.Redirect(w, r, u, http.StatusTemporaryRedirect)
		})
	}
}

// acceptsJSON asserts whether the request prefers a JSON response.
func acceptsJSON(header http.Header) bool {
	for _, v := range header.Values("Accept") {
		if strings.Contains(v, "application/json") {
			return true
		}
	}

	return false
}
