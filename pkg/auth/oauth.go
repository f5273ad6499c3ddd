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

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/tombee/tingle/pkg/auth"

// errAcquisitionCancelled marks acquisitions stopped by their context.
var errAcquisitionCancelled = errors.New("token acquisition cancelled")

// RetryPolicy configures token acquisition retries.
type RetryPolicy struct {
	// MaxAttempts is the total number of token requests (default: 3)
	MaxAttempts int

	// BaseBackoff is the wait after the first failed attempt (default: 2s)
	BaseBackoff time.Duration

	// BackoffFactor multiplies the base wait after each failed attempt (default: 2.0)
	BackoffFactor float64

	// JitterMin and JitterMax bound the random delay added to every wait
	// (default: 1ms to 1s)
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultRetryPolicy returns the default token retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseBackoff:   2 * time.Second,
		BackoffFactor: 2.0,
		JitterMin:     1 * time.Millisecond,
		JitterMax:     1 * time.Second,
	}
}

// Validate checks if the retry policy is valid.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseBackoff < 0 {
		return fmt.Errorf("base_backoff must be non-negative, got %v", p.BaseBackoff)
	}
	if p.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff_factor must be >= 1.0, got %f", p.BackoffFactor)
	}
	if p.JitterMin < 0 || p.JitterMax < p.JitterMin {
		return fmt.Errorf("jitter range [%v, %v] is invalid", p.JitterMin, p.JitterMax)
	}
	return nil
}

// Backoff returns the wait after failed attempt n (1-based):
// BaseBackoff * BackoffFactor^(n-1) + jitter.
func (p RetryPolicy) Backoff(attempt int, jitter time.Duration) time.Duration {
	delay := float64(p.BaseBackoff)
	for i := 1; i < attempt; i++ {
		delay *= p.BackoffFactor
	}
	return time.Duration(delay) + jitter
}

// randomJitter returns a uniformly random duration in [min, max].
func randomJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Sleeper pauses between token request attempts.
// Sleep returns early with ctx.Err() when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OAuthProvider authenticates requests with a bearer token obtained through
// the client credentials grant. Tokens are cached until shortly before they
// expire; concurrent callers that find the cache expired share one
// acquisition.
type OAuthProvider struct {
	creds           OAuthCredentials
	header          *HeaderProvider
	cache           TokenCache
	client          TokenClient
	retry           RetryPolicy
	now             func() time.Time
	sleeper         Sleeper
	jitter          func(min, max time.Duration) time.Duration
	failOnExhausted bool
	logger          *slog.Logger

	group singleflight.Group
}

// OAuthOption configures an OAuthProvider.
type OAuthOption func(*OAuthProvider)

// WithScheme overrides the Authorization scheme (default "Bearer").
func WithScheme(scheme string) OAuthOption {
	return func(p *OAuthProvider) {
		if scheme != "" {
			p.header = NewHeaderProvider(scheme, p.parameter)
		}
	}
}

// WithCache sets the token cache (default: a new MemoryTokenCache).
func WithCache(cache TokenCache) OAuthOption {
	return func(p *OAuthProvider) {
		if cache != nil {
			p.cache = cache
		}
	}
}

// WithTokenClient sets the token client (default: FormTokenClient).
func WithTokenClient(client TokenClient) OAuthOption {
	return func(p *OAuthProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy RetryPolicy) OAuthOption {
	return func(p *OAuthProvider) {
		p.retry = policy
	}
}

// WithClock overrides the clock used for expiry calculations.
func WithClock(now func() time.Time) OAuthOption {
	return func(p *OAuthProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSleeper overrides how the provider waits between attempts.
func WithSleeper(sleeper Sleeper) OAuthOption {
	return func(p *OAuthProvider) {
		if sleeper != nil {
			p.sleeper = sleeper
		}
	}
}

// WithJitter overrides the jitter source.
func WithJitter(jitter func(min, max time.Duration) time.Duration) OAuthOption {
	return func(p *OAuthProvider) {
		if jitter != nil {
			p.jitter = jitter
		}
	}
}

// WithFailOnExhausted makes Authenticate return ErrTokenAcquisitionExhausted
// when every attempt fails. By default the request is sent with an empty
// bearer credential and the server's 401 reports the failure.
func WithFailOnExhausted(fail bool) OAuthOption {
	return func(p *OAuthProvider) {
		p.failOnExhausted = fail
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OAuthOption {
	return func(p *OAuthProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewOAuthProvider creates a client credentials provider.
func NewOAuthProvider(creds OAuthCredentials, opts ...OAuthOption) (*OAuthProvider, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oauth credentials: %w", err)
	}

	p := &OAuthProvider{
		creds:   creds,
		cache:   NewMemoryTokenCache(),
		client:  NewFormTokenClient(nil),
		retry:   DefaultRetryPolicy(),
		now:     time.Now,
		sleeper: timerSleeper{},
		jitter:  randomJitter,
		logger:  slog.Default(),
	}
	p.header = NewHeaderProvider(DefaultBearerScheme, p.parameter)

	for _, opt := range opts {
		opt(p)
	}

	if err := p.retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	return p, nil
}

// Scheme returns the Authorization scheme.
func (p *OAuthProvider) Scheme() string {
	return p.header.Scheme()
}

// Authenticate implements Provider. It blocks while a token is acquired,
// bounded by the retry policy and req.Context().
func (p *OAuthProvider) Authenticate(req *http.Request) error {
	return p.header.Authenticate(req)
}

func (p *OAuthProvider) parameter(req *http.Request) (string, error) {
	token, err := p.Token(req.Context())
	if err == nil {
		return token, nil
	}

	if errors.Is(err, ErrTokenAcquisitionExhausted) && !p.failOnExhausted {
		p.logger.Warn("sending request without credential after token acquisition failed",
			"client_id", p.creds.ClientID,
			"error", err,
		)
		return "", nil
	}
	return "", err
}

// Token returns a valid access token, from the cache when possible.
// It returns ErrTokenAcquisitionExhausted when every attempt failed and the
// context error when ctx ends first.
func (p *OAuthProvider) Token(ctx context.Context) (string, error) {
	if token, ok := p.cached(); ok {
		tokenCacheLookups.WithLabelValues("hit").Inc()
		return token, nil
	}
	tokenCacheLookups.WithLabelValues("miss").Inc()

	for {
		ch := p.group.DoChan(p.creds.ClientID, func() (any, error) {
			return p.acquire(ctx)
		})

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", errAcquisitionCancelled, ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				// The shared acquisition was bound to another caller's context.
				if errors.Is(res.Err, errAcquisitionCancelled) && ctx.Err() == nil {
					continue
				}
				return "", res.Err
			}
			return res.Val.(string), nil
		}
	}
}

// TokenSource returns an oauth2.TokenSource backed by the provider so it can
// feed oauth2.Transport or other x/oauth2 consumers.
func (p *OAuthProvider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &providerTokenSource{ctx: ctx, provider: p}
}

type providerTokenSource struct {
	ctx      context.Context
	provider *OAuthProvider
}

// Token implements oauth2.TokenSource.
func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.provider.Token(s.ctx)
	if err != nil {
		return nil, err
	}

	t := &oauth2.Token{
		AccessToken: token,
		TokenType:   s.provider.Scheme(),
	}
	if record, ok := s.provider.cache.Get(); ok && record.AccessToken == token {
		t.Expiry = record.ExpiresAt()
	}
	return t, nil
}

func (p *OAuthProvider) cached() (string, bool) {
	record, ok := p.cache.Get()
	if !ok || record.Expired(p.now().UnixMilli()) {
		return "", false
	}
	return record.AccessToken, true
}

// acquire requests a new token, retrying per the retry policy.
// The cache is only written on success.
func (p *OAuthProvider) acquire(ctx context.Context) (string, error) {
	// Another flight may have filled the cache while this one was queued.
	if token, ok := p.cached(); ok {
		return token, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "oauth.acquire_token",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("oauth.client_id", p.creds.ClientID),
			attribute.Int("oauth.max_attempts", p.retry.MaxAttempts),
		),
	)
	defer span.End()
	started := time.Now()

	var lastErr error
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", p.cancelled(span, ctx.Err())
		}

		resp, err := p.client.RequestToken(ctx, p.creds)
		if err == nil {
			tokenRequests.WithLabelValues("success").Inc()
			tokenAcquisitions.WithLabelValues("acquired").Inc()
			recordAcquireDuration(ctx, time.Since(started), "acquired")

			expiresAt := ExpiryFor(p.now(), resp.ExpiresIn)
			p.cache.Put(resp.AccessToken, expiresAt)

			span.SetAttributes(attribute.Int("oauth.attempts", attempt))
			span.SetStatus(codes.Ok, "")
			p.logger.Debug("acquired access token",
				"client_id", p.creds.ClientID,
				"attempt", attempt,
				"expires_in", resp.ExpiresIn,
			)
			return resp.AccessToken, nil
		}

		tokenRequests.WithLabelValues("failure").Inc()
		lastErr = err
		if isCancellation(err) && ctx.Err() != nil {
			return "", p.cancelled(span, ctx.Err())
		}

		span.AddEvent("token_request_failed", trace.WithAttributes(
			attribute.Int("oauth.attempt", attempt),
			attribute.String("error", err.Error()),
		))

		if attempt >= p.retry.MaxAttempts {
			break
		}

		delay := p.retry.Backoff(attempt, p.jitter(p.retry.JitterMin, p.retry.JitterMax))
		p.logger.Warn("token request failed, retrying",
			"client_id", p.creds.ClientID,
			"attempt", attempt,
			"backoff", delay,
			"error", err,
		)

		if err := p.sleeper.Sleep(ctx, delay); err != nil {
			return "", p.cancelled(span, err)
		}
	}

	tokenAcquisitions.WithLabelValues("exhausted").Inc()
	recordAcquireDuration(ctx, time.Since(started), "exhausted")
	exhausted := fmt.Errorf("%w after %d attempts: %w", ErrTokenAcquisitionExhausted, p.retry.MaxAttempts, lastErr)
	span.RecordError(exhausted)
	span.SetStatus(codes.Error, "token acquisition exhausted")
	p.logger.Error("token acquisition exhausted",
		"client_id", p.creds.ClientID,
		"attempts", p.retry.MaxAttempts,
		"error", lastErr,
	)
	return "", exhausted
}

func (p *OAuthProvider) cancelled(span trace.Span, cause error) error {
	tokenAcquisitions.WithLabelValues("cancelled").Inc()
	err := fmt.Errorf("%w: %w", errAcquisitionCancelled, cause)
	span.RecordError(err)
	span.SetStatus(codes.Error, "cancelled")
	return err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
