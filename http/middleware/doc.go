/*
Package middleware defines what a middleware is in convexauth and the middlewares a convexauth server runs.

The available middlewares are:
- Authenticate
- CORS
- ForceHTTPS
- InjectConvex
- InjectIPAddress
- LogRequest
- RateLimit
- ReportPanic
- RequestID
- RequireAuthed

Authenticate mirrors the anonymous sign-in hook of a better-auth web app:
a visitor without a Convex JWT cookie is signed in anonymously,
and a visitor whose JWT the Convex backend rejects is signed in afresh, once.
It depends on InjectConvex running first.

A typical chain, as the server package assembles it:

	adpts := []middleware.Adapter{
		middleware.ReportPanic(env),
		middleware.ForceHTTPS(env),
		middleware.RequestID(convexauth.RequestIDKey),
		middleware.InjectIPAddress(),
		middleware.LogRequest(log),
		middleware.InjectConvex(newConvex),
		middleware.Authenticate(authClient, middleware.WithUserCache(cache)),
	}
*/
package middleware
