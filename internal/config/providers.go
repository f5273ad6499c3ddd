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

package config

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/tingle/internal/tracing"
	"github.com/tombee/tingle/pkg/apiclient"
	"github.com/tombee/tingle/pkg/auth"
	tingleerrors "github.com/tombee/tingle/pkg/errors"
	"github.com/tombee/tingle/pkg/httpclient"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// HTTPClientConfig maps the http section onto the shared HTTP client.
func (c *Config) HTTPClientConfig(logger *slog.Logger) httpclient.Config {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = c.HTTP.Timeout
	cfg.UserAgent = c.HTTP.UserAgent
	cfg.InsecureSkipVerify = c.HTTP.InsecureSkipVerify
	cfg.Logger = logger
	return cfg
}

// TracingConfig maps the telemetry section onto tracing.Setup.
func (c *Config) TracingConfig(version string) tracing.Config {
	cfg := tracing.DefaultConfig()
	if version != "" {
		cfg.ServiceVersion = version
	}
	cfg.SampleRate = c.Telemetry.SampleRate
	cfg.Exporter = tracing.ExporterConfig{
		Type:       c.Telemetry.Exporter,
		Endpoint:   c.Telemetry.Endpoint,
		Headers:    c.Telemetry.Headers,
		Insecure:   c.Telemetry.Insecure,
		CACertPath: c.Telemetry.CACert,
	}
	return cfg
}

// BuildAuthProvider creates the provider selected by auth.mode. The
// returned closer releases the token cache and is never nil.
func (c *Config) BuildAuthProvider(ctx context.Context, httpClient *http.Client, logger *slog.Logger) (auth.Provider, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch c.Auth.Mode {
	case AuthModeSharedKey:
		sk := c.Auth.SharedKey
		var opts []auth.SharedKeyOption
		if sk.Scheme != "" {
			opts = append(opts, auth.WithSharedKeyScheme(sk.Scheme))
		}
		if sk.DateHeader != "" {
			opts = append(opts, auth.WithDateHeader(sk.DateHeader))
		}
		opts = append(opts, auth.WithSharedKeyLogger(logger))
		p, err := auth.NewSharedKeyProviderBase64(sk.Key, opts...)
		if err != nil {
			return nil, nil, &tingleerrors.CredentialError{
				Provider: AuthModeSharedKey,
				Reason:   "invalid shared key",
				Hint:     "auth.shared_key.key must be the base64-encoded secret",
				Cause:    err,
			}
		}
		return p, nopCloser{}, nil

	case AuthModeOAuth:
		return c.buildOAuthProvider(httpClient, logger)

	case AuthModeSigV4:
		s := c.Auth.SigV4
		p, err := auth.NewSigV4Provider(ctx, auth.SigV4Config{
			Service:         s.Service,
			Region:          s.Region,
			AccessKeyID:     s.AccessKeyID,
			SecretAccessKey: s.SecretAccessKey,
			SessionToken:    s.SessionToken,
		}, auth.WithSigV4Logger(logger))
		if err != nil {
			return nil, nil, &tingleerrors.CredentialError{
				Provider: AuthModeSigV4,
				Reason:   "could not load AWS credentials",
				Hint:     "set auth.aws_sigv4 keys or configure the AWS credential chain",
				Cause:    err,
			}
		}
		return p, nopCloser{}, nil

	default:
		return auth.EmptyProvider{}, nopCloser{}, nil
	}
}

func (c *Config) buildOAuthProvider(httpClient *http.Client, logger *slog.Logger) (auth.Provider, io.Closer, error) {
	o := c.Auth.OAuth
	creds := auth.OAuthCredentials{
		Endpoint:     o.TokenURL,
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Resource:     o.Resource,
		Scopes:       o.Scopes,
	}

	var tokenClient auth.TokenClient
	switch o.Client {
	case TokenClientOAuth2:
		tokenClient = auth.NewClientCredentialsTokenClient(httpClient)
	default:
		tokenClient = auth.NewFormTokenClient(httpClient)
	}

	var (
		cache  auth.TokenCache
		closer io.Closer = nopCloser{}
	)
	switch o.Cache.Backend {
	case CacheKeyring:
		cache = auth.NewKeyringTokenCache(o.Cache.Service, o.ClientID, logger)
	case CacheSQLite:
		sqlite, err := auth.OpenSQLiteTokenCache(auth.SQLiteCacheConfig{
			Path:   expandHome(o.Cache.Path),
			Key:    o.ClientID,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, &tingleerrors.ConfigError{
				Key:    "auth.oauth.cache.path",
				Reason: "cannot open token cache",
				Cause:  err,
			}
		}
		cache, closer = sqlite, sqlite
	default:
		cache = auth.NewMemoryTokenCache()
	}

	policy := auth.DefaultRetryPolicy()
	if o.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = o.Retry.MaxAttempts
	}
	if o.Retry.BaseBackoff > 0 {
		policy.BaseBackoff = o.Retry.BaseBackoff
	}

	opts := []auth.OAuthOption{
		auth.WithTokenClient(tokenClient),
		auth.WithCache(cache),
		auth.WithRetryPolicy(policy),
		auth.WithFailOnExhausted(o.FailOnExhausted),
		auth.WithLogger(logger),
	}
	if o.Scheme != "" {
		opts = append(opts, auth.WithScheme(o.Scheme))
	}

	p, err := auth.NewOAuthProvider(creds, opts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, &tingleerrors.CredentialError{
			Provider: AuthModeOAuth,
			Reason:   "invalid client credentials",
			Cause:    err,
		}
	}
	return p, closer, nil
}

// BuildClient assembles an API client from the config: the shared HTTP
// client, the auth provider, app details, request logging and the rate
// limiter. The closer must be called when the client is no longer needed.
func (c *Config) BuildClient(ctx context.Context, logger *slog.Logger) (*apiclient.Client, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient, err := httpclient.New(c.HTTPClientConfig(logger))
	if err != nil {
		return nil, nil, &tingleerrors.ConfigError{Key: "http", Reason: err.Error(), Cause: err}
	}

	provider, closer, err := c.BuildAuthProvider(ctx, httpClient, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []apiclient.Option{
		apiclient.WithHTTPClient(httpClient),
		apiclient.WithAuthProvider(provider),
		apiclient.WithLogger(logger),
	}

	// Logging runs last so it records the headers the other middleware add.
	if c.App.PackageID != "" {
		opts = append(opts, apiclient.WithMiddleware(
			apiclient.NewAppDetailsMiddleware(c.App.PackageID, c.App.VersionName, c.App.VersionCode)))
	}
	level, _ := apiclient.ParseLogLevel(c.HTTP.LogLevel)
	if level != apiclient.LogNone {
		opts = append(opts, apiclient.WithMiddleware(apiclient.NewLoggingMiddleware(logger, level, slog.LevelInfo)))
	}
	if c.HTTP.RateLimit.RPS > 0 {
		opts = append(opts, apiclient.WithRateLimiter(
			apiclient.NewRateLimiter(c.HTTP.RateLimit.RPS, c.HTTP.RateLimit.Burst)))
	}

	client, err := apiclient.New(opts...)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return client, closer, nil
}

// TokenProvider returns the OAuth provider for `tingle token`, or a
// ConfigError when auth.mode is not oauth.
func (c *Config) TokenProvider(httpClient *http.Client, logger *slog.Logger) (*auth.OAuthProvider, io.Closer, error) {
	if c.Auth.Mode != AuthModeOAuth {
		return nil, nil, &tingleerrors.ConfigError{
			Key:    "auth.mode",
			Reason: "token requires auth.mode oauth, got " + c.Auth.Mode,
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	p, closer, err := c.buildOAuthProvider(httpClient, logger)
	if err != nil {
		return nil, nil, err
	}
	return p.(*auth.OAuthProvider), closer, nil
}

// SetupTracing starts telemetry for this config. Shutdown must be called
// before exit so batched spans are flushed.
func (c *Config) SetupTracing(ctx context.Context, version string, console io.Writer) (*tracing.Provider, error) {
	return tracing.Setup(ctx, c.TracingConfig(version), console)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
