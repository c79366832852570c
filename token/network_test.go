package token_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"syscall"
	"testing"

	"github.com/fartinmartin/convexauth/token"
	"github.com/stretchr/testify/require"
)

func TestIsNetworkErrorMessages(t *testing.T) {
	for _, msg := range []string{
		"network error",
		"Failed to fetch",
		"NetworkError when attempting to fetch resource.",
		"The Internet connection appears to be offline.",
		"Load failed",
		"Network request failed",
		"fetch failed",
		"terminated",
	} {
		t.Run(msg, func(t *testing.T) {
			require.True(t, token.IsNetworkError(&token.FetchError{Message: msg}))
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	for _, tc := range []struct {
		name     string
		err      error
		expected bool
	}{
		{"Nil", nil, false},
		{"Unrelated-Message", &token.FetchError{Message: "validation failed"}, false},
		{"Load-Failed-With-Stack", &token.FetchError{Message: "Load failed", Stack: "at handler (app.js:1:1)"}, false},
		{"Fetch-Failed-With-Stack", &token.FetchError{Message: "fetch failed", Stack: "at fetch (node:internal)"}, true},
		{"Wrapped-Fetch-Error", fmt.Errorf("token: %w", &token.FetchError{Message: "Failed to fetch"}), true},
		{"Plain-Error-Same-Text", errors.New("fetch failed"), false},
		{"Dial-Refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, true},
		{"Reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"Unexpected-EOF", io.ErrUnexpectedEOF, true},
		{"DNS", &net.DNSError{Err: "no such host", Name: "example.invalid"}, true},
		{"Canceled", &url.Error{Op: "Get", URL: "https://example.com", Err: context.Canceled}, false},
		{"Deadline", context.DeadlineExceeded, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, token.IsNetworkError(tc.err))
		})
	}
}

func TestIsNetworkErrorClosedServer(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	// Act
	_, err := http.Get(addr)

	// Assert
	require.Error(t, err)
	require.True(t, token.IsNetworkError(err))
}
