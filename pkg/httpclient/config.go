package httpclient

import (
	"fmt"
	"log/slog"
	"time"
)

// Config configures the HTTP client used for API and token requests.
type Config struct {
	// Timeout is the total request timeout.
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string

	// InsecureSkipVerify disables certificate verification.
	// Development only; never enable against production endpoints.
	InsecureSkipVerify bool

	// PropagateTrace injects W3C trace context headers from the request
	// context. Default: true.
	PropagateTrace bool

	// Logger receives one record per request. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		UserAgent:      "tingle-http-client/1.0",
		PropagateTrace: true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}
