package convex_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/convex"
)

func fetchReturning(tok string, err error) convexauth.AccessTokenFunc {
	return func(ctx context.Context, opts convexauth.FetchTokenOptions) (string, error) {
		if !opts.ForceRefreshToken {
			return "", nil
		}
		return tok, err
	}
}

func TestClientSetAuth(t *testing.T) {
	tcs := []struct {
		name     string
		fetch    convexauth.AccessTokenFunc
		expected bool
	}{
		{"Accepted", fetchReturning("good", nil), true},
		{"Rejected", fetchReturning("bad", nil), false},
		{"No-Token", fetchReturning("", nil), false},
		{"Fetch-Failed", fetchReturning("", errors.New("validation failed")), false},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			srv := newDeployment(t)
			hc, err := convex.NewHTTPClient(srv.URL)
			require.Nil(t, err)
			c := convex.NewClient(hc)
			defer c.Close()

			answers := make(chan bool, 1)

			// Act
			c.SetAuth(tc.fetch, func(ok bool) { answers <- ok })

			// Assert
			select {
			case ok := <-answers:
				require.Equal(t, tc.expected, ok)
			case <-time.After(time.Second):
				t.Fatal("no confirmation")
			}
		})
	}
}

func TestClientSupersedes(t *testing.T) {
	// Arrange
	srv := newDeployment(t)
	hc, err := convex.NewHTTPClient(srv.URL)
	require.Nil(t, err)
	c := convex.NewClient(hc)

	release := make(chan struct{})
	blocked := func(ctx context.Context, opts convexauth.FetchTokenOptions) (string, error) {
		select {
		case <-release:
			return "good", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	stale := make(chan bool, 1)
	fresh := make(chan bool, 1)

	// Act
	c.SetAuth(blocked, func(ok bool) { stale <- ok })
	c.SetAuth(fetchReturning("good", nil), func(ok bool) { fresh <- ok })

	// Assert
	select {
	case ok := <-fresh:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("no confirmation")
	}

	close(release)
	c.Close()
	require.Empty(t, stale)
}

func TestClientClearAuth(t *testing.T) {
	// Arrange
	srv := newDeployment(t)
	hc, err := convex.NewHTTPClient(srv.URL)
	require.Nil(t, err)
	hc.SetAuth("good")
	c := convex.NewClient(hc)

	// Act
	c.ClearAuth()
	ok, err := c.HTTPClient().IsAuthenticated(context.Background())

	// Assert
	require.Nil(t, err)
	require.False(t, ok)
}

func TestClientClearAuthDuringFetch(t *testing.T) {
	// Arrange
	srv := newDeployment(t)
	hc, err := convex.NewHTTPClient(srv.URL)
	require.Nil(t, err)
	c := convex.NewClient(hc)

	fetching := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context, opts convexauth.FetchTokenOptions) (string, error) {
		close(fetching)
		<-release
		return "good", nil
	}

	answers := make(chan bool, 1)
	c.SetAuth(slow, func(ok bool) { answers <- ok })
	<-fetching

	// Act
	c.ClearAuth()
	close(release)
	c.Close()

	// Assert
	require.Empty(t, answers)
	ok, err := c.HTTPClient().IsAuthenticated(context.Background())
	require.Nil(t, err)
	require.False(t, ok)
}
