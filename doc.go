/*
Package convexauth defines the types shared by the packages bridging a web application's
session handling to a better-auth provider hosted on Convex.

# Overview

A request reaching a convexauth server is authenticated by a JWT carried in a cookie.
When no cookie is present, the server signs the visitor in anonymously
and forwards the cookies the provider sets.
The resulting [User] is resolved by querying the Convex backend.

Go clients of the same backend use [authstate.Reconciler]
to follow the provider's [Session] and the backend's confirmation of it,
obtaining tokens through [token.Fetcher].

[authstate.Reconciler]: https://pkg.go.dev/github.com/fartinmartin/convexauth/authstate#Reconciler
[token.Fetcher]: https://pkg.go.dev/github.com/fartinmartin/convexauth/token#Fetcher
*/
package convexauth
