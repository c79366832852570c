package middleware

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"

	"github.com/fartinmartin/convexauth"
)

// ReportPanic recovers panics in handlers and reports them to Sentry,
// responding 500.
//
// In development, panics are left alone and NoopAdapter returns.
func ReportPanic(env convexauth.Environment) Adapter {
	if env.IsDevelopment() {
		return NoopAdapter
	}

	sh := sentryhttp.New(sentryhttp.Options{
		Repanic:         false,
		WaitForDelivery: true,
	})

	return func(handler http.Handler) http.Handler {
		return sh.Handle(recovered(handler))
	}
}

// recovered writes 500 once sentryhttp has swallowed a panic.
func recovered(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				panic(err)
			}
		}()

		h.ServeHTTP(w, r)
	})
}
