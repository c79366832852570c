package proxy_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/http/proxy"
)

func TestNew(t *testing.T) {
	for _, site := range []string{"", "happy-otter-123.convex.site"} {
		_, err := proxy.New(site)
		require.ErrorIs(t, err, convexauth.ErrBadConfig)
	}
}

func TestProxy(t *testing.T) {
	// Arrange
	type seen struct {
		method, path, query, encoding, host, body string
	}
	var got seen
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = seen{r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("Accept-Encoding"), r.Host, string(b)}

		if r.URL.Path == "/api/auth/callback" {
			http.Redirect(w, r, "https://example.com/done", http.StatusFound)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: "better-auth.session_token", Value: "abc", Path: "/"})
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	p, err := proxy.New(upstream.URL + "/")
	require.Nil(t, err)

	// Act
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "https://app.example.com/api/auth/sign-in/anonymous?x=1", strings.NewReader(`{}`))
	r.Header.Set("Accept-Encoding", "gzip, br")
	p.ServeHTTP(w, r)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"ok":true}`, w.Body.String())
	require.Equal(t, seen{
		method:   http.MethodPost,
		path:     "/api/auth/sign-in/anonymous",
		query:    "x=1",
		encoding: proxy.AcceptEncoding,
		host:     strings.TrimPrefix(upstream.URL, "http://"),
		body:     `{}`,
	}, got)
	require.Len(t, w.Result().Cookies(), 1)

	// Act
	w = httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://app.example.com/api/auth/callback", nil))

	// Assert
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://example.com/done", w.Header().Get("Location"))
}

func TestProxyUpstreamDown(t *testing.T) {
	// Arrange
	upstream := httptest.NewServer(http.NotFoundHandler())
	site := upstream.URL
	upstream.Close()

	p, err := proxy.New(site)
	require.Nil(t, err)

	// Act
	w := httptest.NewRecorder()
	p.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "https://app.example.com/api/auth/get-session", nil))

	// Assert
	require.Equal(t, http.StatusBadGateway, w.Code)
}
