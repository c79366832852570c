package cookie

import (
	"net/http"
	"time"

	"github.com/fartinmartin/convexauth/logger"
)

// DefaultPath is the path cookies are scoped to when none is given.
const DefaultPath = "/"

// A Store reads a request's cookies and writes cookies to its response.
type Store struct {
	r       *http.Request
	w       *ResponseWriter
	l       logger.Logger
	pending map[string]*http.Cookie
}

// A StoreOpt configures a Store.
type StoreOpt func(*Store)

// WithLogger sets the logger.Logger dropped writes are reported to.
func WithLogger(l logger.Logger) StoreOpt {
	return func(s *Store) {
		if l != nil {
			s.l = l
		}
	}
}

// NewStore constructs a Store over r and w.
func NewStore(w *ResponseWriter, r *http.Request, opts ...StoreOpt) *Store {
	s := &Store{
		r:       r,
		w:       w,
		l:       logger.NewDiscard(),
		pending: make(map[string]*http.Cookie),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get retrieves the value of the cookie named name,
// preferring a value set while handling the request.
func (s *Store) Get(name string) (string, bool) {
	if c, ok := s.pending[name]; ok {
		if c.MaxAge < 0 {
			return "", false
		}

		return c.Value, true
	}

	c, err := s.r.Cookie(name)
	if err != nil {
		return "", false
	}

	return c.Value, true
}

// Set writes c to the response, scoped to DefaultPath if c has no path,
// replacing a cookie already set with the same name and path.
//
// Once the response has started, Set does nothing.
func (s *Store) Set(c *http.Cookie) {
	if c == nil || c.Name == "" {
		return
	}

	if s.w.Written() {
		s.l.Debug("response already started, dropping cookie "+c.Name, nil)
		return
	}

	cp := *c
	cp.Path = pathOrDefault(cp.Path)

	s.unset(cp.Name, cp.Path)
	http.SetCookie(s.w, &cp)
	s.pending[cp.Name] = &cp
}

// unset drops the Set-Cookie headers for name at path.
func (s *Store) unset(name, path string) {
	h := s.w.Header()
	lines := h.Values("Set-Cookie")
	if len(lines) == 0 {
		return
	}

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		c, err := http.ParseSetCookie(line)
		if err == nil && c.Name == name && pathOrDefault(c.Path) == path {
			continue
		}

		kept = append(kept, line)
	}

	h.Del("Set-Cookie")
	for _, line := range kept {
		h.Add("Set-Cookie", line)
	}
}

func pathOrDefault(path string) string {
	if path == "" {
		return DefaultPath
	}

	return path
}

// Delete expires the cookie named name at path.
func (s *Store) Delete(name, path string) {
	s.Set(&http.Cookie{
		Name:    name,
		Path:    path,
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
}

// Forward sets every cookie in cs on s, keeping each attribute as is.
func Forward(s *Store, cs []*http.Cookie) {
	for _, c := range cs {
		s.Set(c)
	}
}

// ParseSetCookie reads the cookies of the Set-Cookie headers in h.
func ParseSetCookie(h http.Header) []*http.Cookie {
	return (&http.Response{Header: h}).Cookies()
}

// Find returns the first cookie in cs named name, or nil.
func Find(cs []*http.Cookie, name string) *http.Cookie {
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}

	return nil
}
