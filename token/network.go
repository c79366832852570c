package token

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// loadFailed is the generic message of one browser's failed fetch.
// Applications throw errors with the same text, so it only counts without a stack.
const loadFailed = "Load failed"

// fetchFailures are the messages JavaScript fetch implementations use
// when a request never reached the server.
var fetchFailures = map[string]struct{}{
	"network error":                                  {}, // chrome
	"Failed to fetch":                                {}, // chrome
	"NetworkError when attempting to fetch resource.": {}, // firefox
	"The Internet connection appears to be offline.":  {}, // safari 16
	loadFailed:                                        {}, // safari 17+
	"Network request failed":                          {}, // cross-fetch
	"fetch failed":                                    {}, // undici
	"terminated":                                      {}, // undici
}

// A FetchError is a failed request reported by a JavaScript fetch implementation,
// e.g. relayed from an upstream JS runtime.
type FetchError struct {
	Message string
	Stack   string
}

func (e *FetchError) Error() string { return e.Message }

// IsNetworkError asserts whether err stems from a connectivity failure
// rather than from the application.
//
// Cancelled or expired contexts are never network errors.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return isFetchFailure(fe)
	}

	for _, target := range []error{
		io.ErrUnexpectedEOF,
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EPIPE,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	var ne net.Error
	return errors.As(err, &ne)
}

func isFetchFailure(fe *FetchError) bool {
	if fe.Message == loadFailed {
		return fe.Stack == ""
	}

	_, ok := fetchFailures[fe.Message]
	return ok
}
