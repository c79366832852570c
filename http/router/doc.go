/*
Package router registers the routes of a convexauth server.

A [Router] wraps [mux.Router] and leverages a standardized data model - a [Route] -
when registering how requests should be routed.
A path and an HTTP method comprise a [Route].
Before a request gets to a handler,
any middlewares added to the Route are called in the order they appear,
after the middlewares the Router applies to every request.

Whole trees of paths, like the better-auth endpoints under /api/auth,
are handed off with HandlePrefix.
Routes needing a resolved user are registered through AuthedRoutes.
*/
package router
