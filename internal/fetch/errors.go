// ABOUTME: Error taxonomy for remote page requests
// ABOUTME: Sentinels for errors.Is plus StatusError carrying the HTTP status

package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the library or collection does not exist.
	ErrNotFound = errors.New("collection not found")

	// ErrForbidden indicates a missing or insufficient API key.
	ErrForbidden = errors.New("access forbidden")

	// ErrRateLimited indicates the service asked us to slow down.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("remote server error")

	// ErrNetwork indicates a transport failure or timeout.
	ErrNetwork = errors.New("network error")

	// ErrInvalidResponse indicates a body that could not be used.
	ErrInvalidResponse = errors.New("invalid response")
)

// StatusError is returned for every non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Is maps the status code onto the sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusUnauthorized
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= 500
	}
	return false
}

// IsHardFailure reports whether err means the collection can never be fetched
// with the current configuration (missing, or not accessible).
func IsHardFailure(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden)
}

// IsTransient reports whether a retry of the same request may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrServer) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrRateLimited)
}
