// Package config reads the configuration of a convexauth server from environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/time/rate"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/logger"
)

// Config is everything a convexauth server is configured with.
type Config struct {
	Environment convexauth.Environment `env:"ENVIRONMENT" envDefault:"DEVELOPMENT"`
	BaseURL     string                 `env:"BASE_URL"`
	Host        string                 `env:"HOST" envDefault:"localhost"`
	Port        string                 `env:"PORT" envDefault:":3000"`

	// SiteURL is where the web app is served from, as better-auth sees it.
	SiteURL string `env:"SITE_URL"`

	ConvexAPIURL  string `env:"PUBLIC_CONVEX_API_URL,required"`
	ConvexSiteURL string `env:"PUBLIC_CONVEX_SITE_URL"`

	LogLevel  logger.LogLevel `env:"LOG_LEVEL" envDefault:"INFO"`
	SentryDSN string          `env:"SENTRY_DSN"`

	RedisURL     string        `env:"REDIS_URL"`
	UserCacheTTL time.Duration `env:"USER_CACHE_TTL" envDefault:"30s"`

	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	ServerIdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"5s"`

	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST" envDefault:"20"`

	TokenMaxRetries     uint          `env:"TOKEN_MAX_RETRIES" envDefault:"10"`
	SessionPollInterval time.Duration `env:"SESSION_POLL_INTERVAL" envDefault:"1m"`
}

// Load parses Config from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses Config from vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("%w: %s", convexauth.ErrBadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values parsing cannot.
func (c Config) Validate() error {
	if err := c.Environment.Valid(); err != nil {
		return fmt.Errorf("%w: ENVIRONMENT: %s", convexauth.ErrBadConfig, err)
	}

	for name, raw := range map[string]string{
		"BASE_URL":               c.BaseURL,
		"SITE_URL":               c.SiteURL,
		"PUBLIC_CONVEX_API_URL":  c.ConvexAPIURL,
		"PUBLIC_CONVEX_SITE_URL": c.ConvexSiteURL,
	} {
		if raw == "" {
			continue
		}

		if u, err := url.ParseRequestURI(raw); err != nil || u.Host == "" {
			return fmt.Errorf("%w: %s %q is not an absolute URL", convexauth.ErrBadConfig, name, raw)
		}
	}

	return nil
}

// Addr is the address the HTTP server listens on.
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}

	return ":" + c.Port
}

// PublicURL is the URL the server is reached at,
// BASE_URL or else one built from HOST and PORT.
func (c Config) PublicURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}

	return "http://" + c.Host + c.Addr()
}

// AuthRate is AuthRateLimit as a rate.Limit.
func (c Config) AuthRate() rate.Limit { return rate.Limit(c.AuthRateLimit) }
