package token_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fartinmartin/convexauth/token"
	"github.com/stretchr/testify/require"
)

var errOffline = &token.FetchError{Message: "Failed to fetch"}

// scriptedRequester fails with errs in order, then returns tok.
type scriptedRequester struct {
	calls int32
	errs  []error
	tok   string
}

func (s *scriptedRequester) Token(ctx context.Context) (string, error) {
	i := int(atomic.AddInt32(&s.calls, 1)) - 1
	if i < len(s.errs) {
		return "", s.errs[i]
	}

	return s.tok, nil
}

func (s *scriptedRequester) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

func repeat(err error, n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}

	return errs
}

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestNewBackOff(t *testing.T) {
	for trial := 0; trial < 100; trial++ {
		b := token.NewBackOff()
		for n := 0; n <= 10; n++ {
			base := token.InitialBackoff << n
			if base > token.MaxBackoff {
				base = token.MaxBackoff
			}

			d := b.NextBackOff()
			require.GreaterOrEqual(t, int64(d), int64(base/2), "attempt %d", n)
			require.LessOrEqual(t, int64(d), int64(base*3/2), "attempt %d", n)
		}
	}
}

func TestFetch(t *testing.T) {
	errValidation := errors.New("validation failed")

	for _, tc := range []struct {
		name      string
		errs      []error
		tok       string
		expected  string
		err       error
		callCount int
	}{
		{"Success", nil, "jwt", "jwt", nil, 1},
		{"No-Token", nil, "", "", nil, 1},
		{"Non-Network-Error", []error{errValidation}, "jwt", "", errValidation, 1},
		{"Non-Network-After-Retry", []error{errOffline, errValidation}, "jwt", "", errValidation, 2},
		{"Recovers", repeat(errOffline, 3), "jwt", "jwt", nil, 4},
		{"Recovers-On-Last-Retry", repeat(errOffline, 10), "jwt", "jwt", nil, 11},
		{"Gives-Up", repeat(errOffline, 11), "jwt", "", errOffline, 11},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			r := &scriptedRequester{errs: tc.errs, tok: tc.tok}
			f := token.NewFetcher(r, token.WithBackOff(noWait))

			// Act
			actual, err := f.Fetch(context.Background())

			// Assert
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, tc.expected, actual)
			require.Equal(t, tc.callCount, r.Calls())
		})
	}
}

func TestFetchMaxRetries(t *testing.T) {
	// Arrange
	r := &scriptedRequester{errs: repeat(errOffline, 5), tok: "jwt"}
	f := token.NewFetcher(r, token.WithBackOff(noWait), token.WithMaxRetries(2))

	// Act
	_, err := f.Fetch(context.Background())

	// Assert
	require.ErrorIs(t, err, errOffline)
	require.Equal(t, 3, r.Calls())
}

func TestFetchContextDone(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &scriptedRequester{errs: repeat(errOffline, 20), tok: "jwt"}
	f := token.NewFetcher(r, token.WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Minute)
	}))

	// Act
	_, err := f.Fetch(ctx)

	// Assert
	require.ErrorIs(t, err, context.Canceled)
	require.LessOrEqual(t, r.Calls(), 1)
}
