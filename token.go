package convexauth

import "context"

// FetchTokenOptions are passed by a backend client when it needs a token.
type FetchTokenOptions struct {
	// ForceRefreshToken requests a fresh token from the provider.
	// When false, the backend client already holds a cached token.
	ForceRefreshToken bool
}

// An AccessTokenFunc supplies a backend client with access tokens.
// An empty token with a nil error means none is available.
type AccessTokenFunc func(ctx context.Context, opts FetchTokenOptions) (string, error)
