package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoTokenAvailable is returned when no bearer token could be produced
// within the wait budget. No upstream call is made in that case.
var ErrNoTokenAvailable = errors.New("no valid Port API token available: set PORT_CLIENT_ID and PORT_CLIENT_SECRET, or PORT_API_TOKEN_PRIMARY")

// UpstreamRequestError is a non-success response from the Port API.
// Status and body are preserved so callers can pass them through.
type UpstreamRequestError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *UpstreamRequestError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("API request failed: %s %s - %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("API request failed: %s %s - %d %s", e.Method, e.Path, e.StatusCode, body)
}

// IsAuthFailure reports whether the upstream rejected the bearer token.
func (e *UpstreamRequestError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// AuthExchangeError is a non-200 response from the access token endpoint.
type AuthExchangeError struct {
	StatusCode int
	Body       []byte
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("authentication failed: %d %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// isAuthFailure reports whether err is a 401/403 from the upstream.
func isAuthFailure(err error) bool {
	var upstreamErr *UpstreamRequestError
	return errors.As(err, &upstreamErr) && upstreamErr.IsAuthFailure()
}
