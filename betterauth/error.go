package betterauth

import (
	"fmt"

	"github.com/fartinmartin/convexauth"
)

// A StatusError reports an unsuccessful response from the better-auth server.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("better-auth %s %s: status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

func (e *StatusError) Unwrap() error { return convexauth.ErrUnexpected }
