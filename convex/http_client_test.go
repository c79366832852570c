package convex_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/convex"
)

// newDeployment fakes the query endpoint of a deployment accepting the token "good".
func newDeployment(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/query" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("No such route"))
			return
		}

		var in struct {
			Path   string          `json:"path"`
			Args   json.RawMessage `json:"args"`
			Format string          `json:"format"`
		}
		require.Nil(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "json", in.Format)
		require.JSONEq(t, `{}`, string(in.Args))

		auth := r.Header.Get("Authorization")
		if auth != "" && auth != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":"error","errorMessage":"Could not verify token"}`))
			return
		}

		switch in.Path {
		case convex.CurrentUserQuery:
			if auth == "" {
				w.Write([]byte(`{"status":"success","value":null,"logLines":[]}`))
				return
			}
			w.Write([]byte(`{"status":"success","value":{"_id":"k1","userId":"u1","name":"Brave Otter","isAnonymous":true},"logLines":["[LOG] found"]}`))
		case convex.IsAuthenticatedQuery:
			if auth == "" {
				w.Write([]byte(`{"status":"success","value":false}`))
				return
			}
			w.Write([]byte(`{"status":"success","value":true}`))
		default:
			w.Write([]byte(`{"status":"error","errorMessage":"Could not find public function"}`))
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestNewHTTPClient(t *testing.T) {
	for _, addr := range []string{"", "convex.cloud", "::"} {
		_, err := convex.NewHTTPClient(addr)
		require.ErrorIs(t, err, convexauth.ErrBadConfig, addr)
	}

	c, err := convex.NewHTTPClient("https://happy-otter-123.convex.cloud/")
	require.Nil(t, err)
	require.Equal(t, "https://happy-otter-123.convex.cloud", c.Address())
}

func TestHTTPClientCurrentUser(t *testing.T) {
	// Arrange
	srv := newDeployment(t)
	c, err := convex.NewHTTPClient(srv.URL)
	require.Nil(t, err)
	ctx := context.Background()

	// Act
	anon, errAnon := c.CurrentUser(ctx)
	c.SetAuth("good")
	user, errUser := c.CurrentUser(ctx)
	c.SetAuth("bad")
	_, errBad := c.CurrentUser(ctx)
	c.ClearAuth()
	cleared, errCleared := c.CurrentUser(ctx)

	// Assert
	require.Nil(t, errAnon)
	require.Nil(t, anon)

	require.Nil(t, errUser)
	require.Equal(t, "k1", user.GetID())
	require.Equal(t, "u1", user.GetEmail())
	require.True(t, user.IsAnonymous)

	var qe *convex.QueryError
	require.True(t, errors.As(errBad, &qe))
	require.Equal(t, http.StatusUnauthorized, qe.Code)
	require.Equal(t, "Could not verify token", qe.Message)
	require.ErrorIs(t, errBad, convexauth.ErrUnexpected)

	require.Nil(t, errCleared)
	require.Nil(t, cleared)
}

func TestHTTPClientQueryErrors(t *testing.T) {
	// Arrange
	srv := newDeployment(t)
	c, err := convex.NewHTTPClient(srv.URL)
	require.Nil(t, err)

	// Act
	errMissing := c.Query(context.Background(), "auth:nope", nil, nil)
	errNoOut := c.Query(context.Background(), convex.CurrentUserQuery, nil, nil)

	// Assert
	var qe *convex.QueryError
	require.True(t, errors.As(errMissing, &qe))
	require.Equal(t, "Could not find public function", qe.Message)
	require.Nil(t, errNoOut)
}

func TestHTTPClientNotAQueryResponse(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c, err := convex.NewHTTPClient(srv.URL)
	require.Nil(t, err)

	// Act
	_, err = c.IsAuthenticated(context.Background())

	// Assert
	var qe *convex.QueryError
	require.True(t, errors.As(err, &qe))
	require.Equal(t, http.StatusBadGateway, qe.Code)
	require.Equal(t, "upstream down", qe.Message)
}
