package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/joho/godotenv/autoload"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/betterauth"
	"github.com/fartinmartin/convexauth/config"
	"github.com/fartinmartin/convexauth/convex"
	"github.com/fartinmartin/convexauth/http/middleware"
	"github.com/fartinmartin/convexauth/http/proxy"
	"github.com/fartinmartin/convexauth/http/router"
	"github.com/fartinmartin/convexauth/logger"
)

const (
	MePath      = "/api/me"
	HealthPath  = "/healthz"
	ShutdownTTL = 5 * time.Second
)

// A Server manages and exposes all components of a convexauth server to one another.
type Server struct {
	Router *router.Router

	auth   *betterauth.Client
	cache  middleware.UserCacher
	cfg    config.Config
	l      logger.Logger
	proxy  *proxy.Proxy
	routes []router.Route
	srv    *http.Server
}

// An Opt configures a *Server under construction.
type Opt func(*Server)

// WithLogger overrides the logger.Logger New builds from the config.Config.
func WithLogger(l logger.Logger) Opt {
	return func(s *Server) {
		if l != nil {
			s.l = l
		}
	}
}

// WithUserCache overrides the middleware.UserCacher New picks.
func WithUserCache(c middleware.UserCacher) Opt {
	return func(s *Server) {
		s.cache = c
	}
}

// WithRoutes adds routes handled after a request is authenticated.
func WithRoutes(routes ...router.Route) Opt {
	return func(s *Server) {
		s.routes = append(s.routes, routes...)
	}
}

// New constructs a Server from cfg.
//
// Without a user cache from WithUserCache, users are cached in Redis when REDIS_URL is set
// and in memory otherwise.
func New(cfg config.Config, opts ...Opt) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.l == nil {
		s.l = logger.New(
			logger.WithEnv(cfg.Environment.String()),
			logger.WithLevel(cfg.LogLevel),
			logger.WithSentryDSN(cfg.SentryDSN),
		)
	}

	var err error
	s.proxy, err = proxy.New(cfg.ConvexSiteURL, proxy.WithLogger(s.l))
	if err != nil {
		return nil, err
	}

	s.auth, err = betterauth.NewClient(cfg.ConvexSiteURL, betterauth.WithLogger(s.l))
	if err != nil {
		return nil, err
	}

	// NOTE: validate once here so per-request clients can ignore the error.
	if _, err := convex.NewHTTPClient(cfg.ConvexAPIURL); err != nil {
		return nil, err
	}

	if s.cache == nil {
		s.cache, err = newUserCache(cfg)
		if err != nil {
			return nil, err
		}
	}

	s.Router = s.newRouter()
	s.srv = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Router,
		ReadTimeout:  cfg.ServerReadTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	return s, nil
}

func newUserCache(cfg config.Config) (middleware.UserCacher, error) {
	if cfg.RedisURL == "" {
		return middleware.NewUserMap(cfg.UserCacheTTL), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: REDIS_URL: %s", convexauth.ErrBadConfig, err)
	}

	return middleware.NewUserRedis(opts, cfg.UserCacheTTL), nil
}

func (s *Server) newRouter() *router.Router {
	r := router.New(s.cfg.Environment, middleware.LogRequest(s.l))
	r.OnEveryRequest(
		middleware.ForceHTTPS(s.cfg.Environment),
		middleware.RequestID(convexauth.RequestIDKey),
		middleware.InjectIPAddress(),
		middleware.CORS(s.cfg.PublicURL()),
	)

	r.Handle(router.Route{Path: HealthPath, Method: http.MethodGet, Handler: health})

	visitors := middleware.NewVisitors(s.cfg.AuthRate(), s.cfg.AuthRateBurst)
	r.HandlePrefix(betterauth.BasePath, s.proxy, middleware.RateLimit(visitors))

	authed := []middleware.Adapter{
		middleware.InjectConvex(s.newConvex),
		middleware.Authenticate(
			s.auth,
			middleware.WithUserCache(s.cache),
			middleware.WithAuthLogger(s.l),
			middleware.WithSecureCookies(s.cfg.Environment.SecureCookies()),
		),
	}

	r.AuthedRoutes("", []router.Route{{Path: MePath, Method: http.MethodGet, Handler: me}}, authed...)
	r.HandleRoutes(s.routes, authed...)

	return r
}

func (s *Server) newConvex() *convex.HTTPClient {
	c, _ := convex.NewHTTPClient(s.cfg.ConvexAPIURL, convex.WithLogger(s.l))
	return c
}

func (s *Server) Logger() logger.Logger { return s.l }

// Handler is the http.Handler the web server serves.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Guide begins the web server.
//
// These, and (*Server).Shutdown, stop Guide:
//
// - os.Interrupt
// - syscall.SIGHUP
// - syscall.SIGINT
// - syscall.SIGQUIT
// - syscall.SIGTERM
func (s *Server) Guide() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	defer stop()

	return s.Serve(ctx)
}

// Serve runs the web server until ctx is done, then shuts it down.
func (s *Server) Serve(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		s.l.Info(fmt.Sprintf("running web server at %s", s.srv.Addr), nil)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			errs <- fmt.Errorf("could not listen: %w", err)
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			s.l.Error(err.Error(), nil)
			return err
		}
	case <-ctx.Done():
		s.l.Info("received shutdown signal", nil)
	}

	return s.Shutdown()
}

// Shutdown shutdowns the web server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTTL)
	defer cancel()

	s.l.Info("shutting down web server", nil)
	if err := s.srv.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not shutdown: %w", err)
	}

	s.l.Info("web server shutdown successfully", nil)
	return nil
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.CurrentUser(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}
