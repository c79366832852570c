package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fartinmartin/convexauth"
)

// RequestIDHeader echoes the request ID back to the client.
const RequestIDHeader = "X-Request-Id"

// RequestID adds a uuid to the request context under key and to the response headers.
//
// If key is the zero-value, then NoopAdapter returns and this middleware does nothing.
func RequestID(key convexauth.Key) Adapter {
	if key == "" {
		return NoopAdapter
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), key, id)
			h.ServeHTTP(w, r.Clone(ctx))
		})
	}
}

// GetRequestID retrieves the ID RequestID set on ctx, if any.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(convexauth.RequestIDKey).(string)
	return id
}
