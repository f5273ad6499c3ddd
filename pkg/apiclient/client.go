// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apiclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tombee/tingle/pkg/auth"
	"github.com/tombee/tingle/pkg/httpclient"
	"golang.org/x/time/rate"
)

// maxResponseSize bounds how much of a response body is buffered.
const maxResponseSize = 32 << 20

// RateLimiter blocks until the next request may be sent.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// NewRateLimiter returns a token-bucket limiter allowing rps requests per
// second with the given burst.
func NewRateLimiter(rps float64, burst int) RateLimiter {
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Client sends requests through the auth provider and middleware chain.
type Client struct {
	httpClient *http.Client
	provider   auth.Provider
	middleware []Middleware
	limiter    RateLimiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// New creates a Client. Without WithHTTPClient it uses httpclient.New with
// the default config; without WithAuthProvider requests go out unauthenticated.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		provider: auth.EmptyProvider{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient == nil {
		cfg := httpclient.DefaultConfig()
		cfg.Logger = c.logger
		hc, err := httpclient.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}
		c.httpClient = hc
	}

	return c, nil
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return fmt.Errorf("http client must not be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithAuthProvider sets the provider that authenticates every request.
// A nil provider restores the no-op default.
func WithAuthProvider(provider auth.Provider) Option {
	return func(c *Client) error {
		if provider == nil {
			provider = auth.EmptyProvider{}
		}
		c.provider = provider
		return nil
	}
}

// WithMiddleware appends middleware to the chain.
func WithMiddleware(m ...Middleware) Option {
	return func(c *Client) error {
		for _, item := range m {
			if item == nil {
				return fmt.Errorf("middleware must not be nil")
			}
		}
		c.middleware = append(c.middleware, m...)
		return nil
	}
}

// WithRateLimiter makes every request wait on limiter before it is processed.
func WithRateLimiter(limiter RateLimiter) Option {
	return func(c *Client) error {
		c.limiter = limiter
		return nil
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// Do runs a clone of req through the pipeline and returns the response with
// its body fully read. Headers added by the auth provider and middleware are
// never written back to req. The returned response's Body is already closed.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, []byte, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("request must not be nil")
	}
	req = req.Clone(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if err := c.provider.Authenticate(req); err != nil {
		return nil, nil, fmt.Errorf("authenticating request: %w", err)
	}

	for _, m := range c.middleware {
		next, err := m.ProcessRequest(req)
		if err != nil {
			return nil, nil, fmt.Errorf("processing request: %w", err)
		}
		if next != nil {
			req = next
		}
	}

	resp, body, err := c.roundTrip(req)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		c.middleware[i].ProcessResponse(req, resp, body, err)
	}

	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func (c *Client) roundTrip(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, body, nil
}
