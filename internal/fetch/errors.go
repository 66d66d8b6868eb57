package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx upstream response. Relay transports that only
// surface throttling through body text synthesize one with Status 429.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream HTTP %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("upstream HTTP %d", e.Status)
}

// ErrAuth is an authentication or authorization failure. These abort
// the attempt loop immediately: retrying a bad key wastes quota on
// every other key in the pool.
type ErrAuth struct {
	Provider string
	Status   int
}

func (e *ErrAuth) Error() string {
	return fmt.Sprintf("provider %q rejected credentials (HTTP %d)", e.Provider, e.Status)
}

// ErrAllAttemptsFailed is returned when the attempt budget is exhausted.
// Last holds the final attempt's error.
type ErrAllAttemptsFailed struct {
	Provider string
	Attempts int
	Last     error
}

func (e *ErrAllAttemptsFailed) Error() string {
	return fmt.Sprintf("provider %q failed after %d attempts: %v", e.Provider, e.Attempts, e.Last)
}

func (e *ErrAllAttemptsFailed) Unwrap() error { return e.Last }

// IsRateLimited reports whether err represents an HTTP 429.
func IsRateLimited(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusTooManyRequests
}

// IsAuthError reports whether err represents an HTTP 401 or 403.
func IsAuthError(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	return he.Status == http.StatusUnauthorized || he.Status == http.StatusForbidden
}
