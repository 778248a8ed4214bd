package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a Graph request failure that survived the retry policy:
// a non-retryable status, retries exhausted, or a second 401 after a
// token refresh.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// AuthError is a failure to acquire or refresh an access token. Unlike a
// page-level fetch error it cannot heal on the next page, so callers treat
// it as fatal for the run.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthExpired reports whether err is a 401 that persisted through the
// single refresh-and-retry. The caller cannot recover; the run should stop.
func IsAuthExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsAuthError reports whether err means credentials are gone for good:
// either a token acquisition/refresh failure or a 401 that survived the
// refresh-and-retry.
func IsAuthError(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	return IsAuthExpired(err)
}
