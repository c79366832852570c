package router

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/http/middleware"
)

// A Route maps a path and HTTP method to an [http.HandlerFunc].
// Additional [middleware.Adapter] can be called when a server handles
// a request matching the Route.
//
// An empty Method matches every method.
type Route struct {
	Path        string
	Method      string
	Handler     http.HandlerFunc
	Middlewares []middleware.Adapter
}

// Router routes requests to the handlers of a convexauth server.
type Router struct {
	Env           convexauth.Environment
	everyReqStack []middleware.Adapter
	logReq        middleware.Adapter
	r             *mux.Router
}

// New constructs a [*Router] for the given environment.
func New(env convexauth.Environment, logReq middleware.Adapter) *Router {
	if logReq == nil {
		logReq = middleware.NoopAdapter
	}

	return &Router{logReq: logReq, Env: env, r: mux.NewRouter()}
}

// AuthedRoutes registers the set of Routes as those requiring authentication.
// AuthedRoutes applies the given middlewares before performing that check,
// using middleware.RequireAuthed.
//
// middleware.RequireAuthed requires loginURL to appropriately redirect applicable requests.
func (r *Router) AuthedRoutes(loginURL string, routes []Route, middlewares ...middleware.Adapter) {
	mws := append(append([]middleware.Adapter(nil), middlewares...), middleware.RequireAuthed(loginURL))
	r.HandleRoutes(routes, mws...)
}

// Handle applies the [Route] to the [*Router].
func (r *Router) Handle(route Route) {
	r.HandleRoutes([]Route{route})
}

// HandleNotFound sets the provided [http.HandlerFunc] as the default function
// for when no other registered Route is matched.
func (r *Router) HandleNotFound(handler http.HandlerFunc) {
	r.r.NotFoundHandler = middleware.Chain(
		handler,
		append([]middleware.Adapter{middleware.ReportPanic(r.Env), r.logReq}, r.everyReqStack...)...,
	)
}

// HandlePrefix routes every request whose path starts with prefix to handler,
// after the middlewares given.
// The prefix is left on the path.
func (r *Router) HandlePrefix(prefix string, handler http.Handler, middlewares ...middleware.Adapter) {
	mws := append([]middleware.Adapter{middleware.ReportPanic(r.Env), r.logReq}, r.everyReqStack...)
	mws = append(mws, middlewares...)
	r.r.PathPrefix(prefix).Handler(middleware.Chain(handler, mws...))
}

// HandleRoutes registers the set of Routes on the Router
// and includes all the [middleware.Adapter] on each Route.
// Any [middleware.Adapter] already assigned to a Route is appended to middlewares,
// so are called after the default set.
func (r *Router) HandleRoutes(routes []Route, middlewares ...middleware.Adapter) {
	for _, route := range routes {
		mws := append([]middleware.Adapter{middleware.ReportPanic(r.Env), r.logReq}, r.everyReqStack...)
		mws = append(mws, middlewares...)
		mws = append(mws, route.Middlewares...)
		handler := middleware.Chain(route.Handler, mws...)

		mr := r.r.Handle(route.Path, handler)
		if route.Method != "" {
			methods := []string{strings.ToUpper(route.Method)}
			if methods[0] == http.MethodGet {
				methods = append(methods, http.MethodHead)
			}
			mr.Methods(methods...)
		}
	}
}

// OnEveryRequest appends the middlewares to the existing stack
// that the [*Router] will apply to every request.
//
// Routes registered before calling OnEveryRequest are not affected.
func (r *Router) OnEveryRequest(middlewares ...middleware.Adapter) {
	r.everyReqStack = append(r.everyReqStack, middlewares...)
}

// ServeHTTP responds to an HTTP request.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.r.ServeHTTP(w, req)
}

// Subrouter constructs a [Router] that handles requests to endpoints matching the prefix.
//
// e.g., r.Subrouter("/api") handles requests to endpoints like /api/me
func (r *Router) Subrouter(prefix string) *Router {
	return &Router{
		Env:           r.Env,
		r:             r.r.PathPrefix(prefix).Subrouter(),
		logReq:        r.logReq,
		everyReqStack: append([]middleware.Adapter(nil), r.everyReqStack...),
	}
}
