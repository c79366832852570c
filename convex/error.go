package convex

import (
	"fmt"

	"github.com/fartinmartin/convexauth"
)

// A QueryError reports a Convex function that failed, or a response that was not understood.
type QueryError struct {
	Path    string
	Code    int
	Message string
}

func (e *QueryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("convex query %s: status %d: %s", e.Path, e.Code, e.Message)
	}

	return fmt.Sprintf("convex query %s: %s", e.Path, e.Message)
}

func (e *QueryError) Unwrap() error { return convexauth.ErrUnexpected }
