package integrations

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const httpTimeout = 30 * time.Second

// MaxDownloadSize caps exported design files and remote SVG templates.
const MaxDownloadSize = 10 << 20

var (
	// ErrNotFound is returned when a resource doesn't exist upstream.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrUnauthorized is returned for 401/403 responses: an expired or revoked token.
	ErrUnauthorized = errors.New("unauthorized")
)

// NewHTTPClient creates an HTTP client with the standard timeout for
// design-tool requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// Bearer formats an Authorization header value.
func Bearer(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}
