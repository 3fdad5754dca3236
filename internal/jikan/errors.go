package jikan

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited indicates the Jikan API answered 429 Too Many Requests
var ErrRateLimited = errors.New("jikan API rate limit exceeded")

// ErrNotFound indicates the requested catalog item does not exist
var ErrNotFound = errors.New("anime not found")

// ErrRetriesExhausted is returned once the backoff budget is spent.
// The last upstream error stays reachable through errors.Is/As.
var ErrRetriesExhausted = errors.New("jikan API retries exhausted")

// StatusError represents an unexpected HTTP status from the Jikan API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("jikan API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("jikan API error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying (5xx).
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

func isRetryableError(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return false
}
