package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fartinmartin/convexauth/convex"
	"github.com/fartinmartin/convexauth/http/middleware"
)

func TestInjectConvex(t *testing.T) {
	// Arrange + Act
	actual := middleware.InjectConvex(nil)

	// Assert
	require.Equal(t, fmt.Sprintf("%p", middleware.NoopAdapter), fmt.Sprintf("%p", actual))

	// Arrange
	made := 0
	newClient := func() *convex.HTTPClient {
		made++
		c, err := convex.NewHTTPClient("https://happy-otter-123.convex.cloud")
		require.Nil(t, err)
		return c
	}

	var first, second *convex.HTTPClient
	capture := func(into **convex.HTTPClient) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := middleware.GetConvex(r.Context())
			require.True(t, ok)
			*into = c
		})
	}

	// Act
	middleware.InjectConvex(newClient)(capture(&first)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	middleware.InjectConvex(newClient)(capture(&second)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	// Assert
	require.Equal(t, 2, made)
	require.NotSame(t, first, second)
}
