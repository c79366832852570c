// Package proxy forwards the better-auth endpoints of a web app to the Convex deployment serving them.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/logger"
)

// AcceptEncoding is sent upstream in place of the client's Accept-Encoding.
const AcceptEncoding = "application/json"

// A Proxy forwards requests to the site URL of a Convex deployment,
// keeping their path and query.
// Redirects are handed back to the client, never followed.
type Proxy struct {
	site *url.URL
	rp   *httputil.ReverseProxy
	l    logger.Logger
}

// An Opt configures a Proxy when constructing a new one.
type Opt func(*Proxy)

// WithLogger sets the logger.Logger failed upstream requests are reported to.
func WithLogger(l logger.Logger) Opt {
	return func(p *Proxy) {
		if l != nil {
			p.l = l
		}
	}
}

// WithTransport sets the http.RoundTripper upstream requests go through.
func WithTransport(rt http.RoundTripper) Opt {
	return func(p *Proxy) {
		if rt != nil {
			p.rp.Transport = rt
		}
	}
}

// New constructs a Proxy to siteURL, e.g. https://happy-otter-123.convex.site.
//
// An empty or unparsable siteURL is a configuration error.
func New(siteURL string, opts ...Opt) (*Proxy, error) {
	if siteURL == "" {
		return nil, fmt.Errorf("%w: PUBLIC_CONVEX_SITE_URL is not set", convexauth.ErrBadConfig)
	}

	u, err := url.Parse(strings.TrimSuffix(siteURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: PUBLIC_CONVEX_SITE_URL %q", convexauth.ErrBadConfig, siteURL)
	}

	p := &Proxy{site: u, l: logger.NewDiscard()}
	p.rp = &httputil.ReverseProxy{
		Rewrite:      p.rewrite,
		ErrorHandler: p.handleErr,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// ServeHTTP forwards r upstream and copies the response back to w.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.rp.ServeHTTP(w, r)
}

// Target is the upstream URL a request for u goes to.
func (p *Proxy) Target(u *url.URL) *url.URL {
	t := *p.site
	t.Path = p.site.Path + u.Path
	t.RawPath = ""
	t.RawQuery = u.RawQuery
	return &t
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	pr.Out.URL = p.Target(pr.In.URL)
	pr.Out.Host = ""
	pr.Out.Header.Set("Accept-Encoding", AcceptEncoding)
	pr.SetXForwarded()
}

func (p *Proxy) handleErr(w http.ResponseWriter, r *http.Request, err error) {
	p.l.Error("proxying to Convex failed", &logger.LogContext{Error: err, Request: r})
	w.WriteHeader(http.StatusBadGateway)
}
