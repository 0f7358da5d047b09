// Package httputil provides shared HTTP client construction utilities
// for pathprobe. It centralizes timeout defaults and client creation so
// that every package uses consistent configuration.
package httputil

import (
	"net/http"
	"time"
)

// Standard timeout defaults used across the project.
const (
	// DefaultProviderTimeout is the HTTP timeout for LLM completion calls.
	// Completion requests can involve large payloads and long inference
	// times, so they use a longer timeout.
	DefaultProviderTimeout = 60 * time.Second

	// DefaultServiceTimeout is the HTTP timeout for pathway service calls
	// (chat create/send, structure fetch). These are typically
	// shorter-lived API requests.
	DefaultServiceTimeout = 30 * time.Second
)

// NewHTTPClient returns an *http.Client configured with the given timeout.
// Pass one of the Default*Timeout constants, or a custom duration.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
