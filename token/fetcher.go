package token

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fartinmartin/convexauth/logger"
)

const (
	DefaultMaxRetries = 10
	InitialBackoff    = 100 * time.Millisecond
	MaxBackoff        = time.Second

	// Jitter is the fraction of a backoff interval it may be shortened or lengthened by.
	Jitter = 0.5
)

// A Requester asks the auth provider for an access token.
// An empty token with a nil error means the provider answered without one.
type Requester interface {
	Token(ctx context.Context) (string, error)
}

// RequesterFunc adapts a function into a Requester.
type RequesterFunc func(ctx context.Context) (string, error)

func (fn RequesterFunc) Token(ctx context.Context) (string, error) { return fn(ctx) }

// NewBackOff constructs the backoff schedule between token requests:
// min(100ms * 2^attempt, 1s), then randomized by ±50%.
func NewBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     InitialBackoff,
		RandomizationFactor: Jitter,
		Multiplier:          2,
		MaxInterval:         MaxBackoff,
	}
	b.Reset()

	return b
}

// A Fetcher retrieves tokens from a Requester, retrying network failures.
type Fetcher struct {
	r          Requester
	l          logger.Logger
	maxRetries uint
	newBackOff func() backoff.BackOff
}

// A FetcherOpt configures a Fetcher when constructing a new one.
type FetcherOpt func(*Fetcher)

// WithBackOff sets the constructor of the schedule a Fetcher waits by.
// It is called once per Fetch.
func WithBackOff(fn func() backoff.BackOff) FetcherOpt {
	return func(f *Fetcher) {
		if fn != nil {
			f.newBackOff = fn
		}
	}
}

// WithLogger sets the logger.Logger a Fetcher reports retries to.
func WithLogger(l logger.Logger) FetcherOpt {
	return func(f *Fetcher) {
		if l != nil {
			f.l = l
		}
	}
}

// WithMaxRetries sets how many times a network failure is retried before giving up.
func WithMaxRetries(n uint) FetcherOpt {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// NewFetcher constructs a Fetcher requesting tokens from r.
func NewFetcher(r Requester, opts ...FetcherOpt) *Fetcher {
	f := &Fetcher{
		r:          r,
		l:          logger.NewDiscard(),
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff { return NewBackOff() },
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch requests a token, retrying while the request fails with a network error.
//
// Fetch returns the error of the first request failing for any other reason,
// the error of the last request once the retries are spent,
// or the context's error if ctx ends while waiting to retry.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	op := func() (string, error) {
		tok, err := f.r.Token(ctx)
		if err == nil {
			return tok, nil
		}

		if !IsNetworkError(err) {
			return "", backoff.Permanent(err)
		}

		return "", err
	}

	notify := func(err error, next time.Duration) {
		f.l.Debug(
			fmt.Sprintf("token request failed with network error, retrying in %s", next),
			&logger.LogContext{Error: err},
		)
	}

	tok, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(f.newBackOff()),
		backoff.WithMaxTries(f.maxRetries+1),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if IsNetworkError(err) {
			f.l.Warn("token request failed with network error, giving up", &logger.LogContext{Error: err})
		}

		return "", err
	}

	return tok, nil
}
