package betterauth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/http/cookie"
)

const (
	// JWTCookieName is the name the Convex plugin stores its JWT under.
	JWTCookieName = "better-auth.convex_jwt"

	// SecureCookiePrefix is prepended to cookie names when better-auth serves over HTTPS.
	SecureCookiePrefix = "__Secure-"
)

// CookieName is the name of the JWT cookie, depending on whether cookies are secure.
func CookieName(secure bool) string {
	if secure {
		return SecureCookiePrefix + JWTCookieName
	}

	return JWTCookieName
}

// JWTFromCookies finds the Convex JWT among cs, under either its secure or plain name.
func JWTFromCookies(cs []*http.Cookie) string {
	for _, secure := range []bool{true, false} {
		if c := cookie.Find(cs, CookieName(secure)); c != nil {
			return c.Value
		}
	}

	return ""
}

var parser = &jwt.Parser{}

// TokenExpired asserts whether tok's exp claim lies before now.
// A token without exp does not expire.
//
// The signature is not checked; the Convex backend does that.
func TokenExpired(tok string, now time.Time) (bool, error) {
	claims := new(jwt.RegisteredClaims)
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return false, fmt.Errorf("%w: %s", convexauth.ErrNotValid, err)
	}

	return !claims.VerifyExpiresAt(now, false), nil
}
