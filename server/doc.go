/*
Package server initializes and runs a convexauth web server.

# Server

The main entrypoint to package server is the [Server] type,
constructed with [New] from a [config.Config].

[*Server.Guide] begins the web server.
By default it listens on :3000, assuming a reverse proxy fronts it.
Stop it with [*Server.Shutdown] or by sending a signal [*Server.Guide] listens for.

# Routes

A [Server] always handles:

  - /api/auth/*, proxied to PUBLIC_CONVEX_SITE_URL and rate limited per IP address
  - GET /api/me, the current user as JSON, or 401 without one
  - GET /healthz

Every other request passes through middleware.Authenticate,
which signs visitors in anonymously when they carry no JWT cookie.
Add routes with [WithRoutes] or on [*Server.Router].

# Configuration

Environment variables are read with [config.Load].
A ".env" file found in the directory the server is executed from is loaded first.
*/
package server
