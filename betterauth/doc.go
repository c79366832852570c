/*
Package betterauth talks to a better-auth server running as a Convex component.

A [Client] covers the endpoints under /api/auth the rest of the module needs:
the Convex JWT, anonymous sign-in, the current session and one-time token verification.
A [SessionPoller] turns the get-session endpoint into a stream of [convexauth.Session] notifications,
and a [Provider] combines both into an auth provider an [authstate.Reconciler] can follow.

[authstate.Reconciler]: https://pkg.go.dev/github.com/fartinmartin/convexauth/authstate#Reconciler
*/
package betterauth
