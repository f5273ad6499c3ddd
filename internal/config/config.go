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

// Package config loads the tingle CLI configuration file.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/tombee/tingle/pkg/apiclient"
	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

// Auth modes.
const (
	AuthModeNone      = "none"
	AuthModeSharedKey = "shared_key"
	AuthModeOAuth     = "oauth"
	AuthModeSigV4     = "aws_sigv4"
)

// Token cache backends.
const (
	CacheMemory  = "memory"
	CacheKeyring = "keyring"
	CacheSQLite  = "sqlite"
)

// Token clients.
const (
	TokenClientForm   = "form"
	TokenClientOAuth2 = "oauth2"
)

// Config is the root of the config file.
type Config struct {
	Auth      AuthConfig      `yaml:"auth"`
	HTTP      HTTPConfig      `yaml:"http"`
	App       AppConfig       `yaml:"app,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AuthConfig selects and configures the single active auth provider.
type AuthConfig struct {
	Mode      string          `yaml:"mode"`
	SharedKey SharedKeyConfig `yaml:"shared_key,omitempty"`
	OAuth     OAuthConfig     `yaml:"oauth,omitempty"`
	SigV4     SigV4Config     `yaml:"aws_sigv4,omitempty"`
}

// SharedKeyConfig configures HMAC request signing.
type SharedKeyConfig struct {
	// Key is the base64-encoded shared secret.
	Key        string `yaml:"key,omitempty"`
	Scheme     string `yaml:"scheme,omitempty"`
	DateHeader string `yaml:"date_header,omitempty"`
}

// OAuthConfig configures the client-credentials provider.
type OAuthConfig struct {
	TokenURL        string      `yaml:"token_url,omitempty"`
	ClientID        string      `yaml:"client_id,omitempty"`
	ClientSecret    string      `yaml:"client_secret,omitempty"`
	Resource        string      `yaml:"resource,omitempty"`
	Scopes          []string    `yaml:"scopes,omitempty"`
	Scheme          string      `yaml:"scheme,omitempty"`
	Client          string      `yaml:"client,omitempty"`
	FailOnExhausted bool        `yaml:"fail_on_exhausted,omitempty"`
	Retry           RetryConfig `yaml:"retry,omitempty"`
	Cache           CacheConfig `yaml:"cache,omitempty"`
}

// RetryConfig overrides the token acquisition retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BaseBackoff time.Duration `yaml:"base_backoff,omitempty"`
}

// CacheConfig selects where the access token is kept between runs.
type CacheConfig struct {
	Backend string `yaml:"backend,omitempty"`
	// Path is the SQLite database file.
	Path string `yaml:"path,omitempty"`
	// Service is the keychain service name.
	Service string `yaml:"service,omitempty"`
}

// SigV4Config configures AWS Signature V4 signing. Empty keys fall back
// to the default AWS credential chain.
type SigV4Config struct {
	Service         string `yaml:"service,omitempty"`
	Region          string `yaml:"region,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SessionToken    string `yaml:"session_token,omitempty"`
}

// HTTPConfig configures the outgoing HTTP client.
type HTTPConfig struct {
	// BaseURL resolves relative request paths.
	BaseURL            string          `yaml:"base_url,omitempty"`
	Timeout            time.Duration   `yaml:"timeout,omitempty"`
	UserAgent          string          `yaml:"user_agent,omitempty"`
	InsecureSkipVerify bool            `yaml:"insecure_skip_verify,omitempty"`
	LogLevel           string          `yaml:"log_level,omitempty"`
	RateLimit          RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig enables client-side rate limiting when RPS > 0.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

// AppConfig is sent on every request by the app details middleware.
// All three fields must be set together or not at all.
type AppConfig struct {
	PackageID   string `yaml:"package_id,omitempty"`
	VersionName string `yaml:"version_name,omitempty"`
	VersionCode string `yaml:"version_code,omitempty"`
}

// TelemetryConfig configures span export.
type TelemetryConfig struct {
	Exporter   string            `yaml:"exporter,omitempty"`
	Endpoint   string            `yaml:"endpoint,omitempty"`
	Insecure   bool              `yaml:"insecure,omitempty"`
	CACert     string            `yaml:"ca_cert,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	SampleRate float64           `yaml:"sample_rate,omitempty"`
}

// Default returns a config with no authentication.
func Default() *Config {
	return &Config{
		Auth: AuthConfig{
			Mode: AuthModeNone,
			OAuth: OAuthConfig{
				Client: TokenClientForm,
				Cache:  CacheConfig{Backend: CacheMemory, Service: "tingle"},
			},
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "tingle/dev",
			LogLevel:  "none",
			RateLimit: RateLimitConfig{Burst: 1},
		},
		Telemetry: TelemetryConfig{
			Exporter:   "none",
			SampleRate: 1.0,
		},
	}
}

// applyDefaults fills zero values left by a partial file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Auth.Mode == "" {
		c.Auth.Mode = d.Auth.Mode
	}
	if c.Auth.OAuth.Client == "" {
		c.Auth.OAuth.Client = d.Auth.OAuth.Client
	}
	if c.Auth.OAuth.Cache.Backend == "" {
		c.Auth.OAuth.Cache.Backend = d.Auth.OAuth.Cache.Backend
	}
	if c.Auth.OAuth.Cache.Service == "" {
		c.Auth.OAuth.Cache.Service = d.Auth.OAuth.Cache.Service
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = d.HTTP.Timeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = d.HTTP.UserAgent
	}
	if c.HTTP.LogLevel == "" {
		c.HTTP.LogLevel = d.HTTP.LogLevel
	}
	if c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = d.HTTP.RateLimit.Burst
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = d.Telemetry.Exporter
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = d.Telemetry.SampleRate
	}
}

// Validate checks the config for the selected auth mode.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case AuthModeNone:
	case AuthModeSharedKey:
		if c.Auth.SharedKey.Key == "" {
			return missing("auth.shared_key.key")
		}
	case AuthModeOAuth:
		if err := c.Auth.OAuth.validate(); err != nil {
			return err
		}
	case AuthModeSigV4:
		if c.Auth.SigV4.Service == "" {
			return missing("auth.aws_sigv4.service")
		}
		if c.Auth.SigV4.Region == "" {
			return missing("auth.aws_sigv4.region")
		}
		if (c.Auth.SigV4.AccessKeyID == "") != (c.Auth.SigV4.SecretAccessKey == "") {
			return &tingleerrors.ConfigError{
				Key:    "auth.aws_sigv4",
				Reason: "access_key_id and secret_access_key must be set together",
			}
		}
	default:
		return &tingleerrors.ConfigError{
			Key:    "auth.mode",
			Reason: fmt.Sprintf("unknown auth mode %q (want none, shared_key, oauth or aws_sigv4)", c.Auth.Mode),
		}
	}

	if c.HTTP.BaseURL != "" {
		if u, err := url.Parse(c.HTTP.BaseURL); err != nil || !u.IsAbs() {
			return &tingleerrors.ConfigError{Key: "http.base_url", Reason: "must be an absolute URL"}
		}
	}
	if c.HTTP.Timeout <= 0 {
		return &tingleerrors.ConfigError{Key: "http.timeout", Reason: "must be positive"}
	}
	if _, err := apiclient.ParseLogLevel(c.HTTP.LogLevel); err != nil {
		return &tingleerrors.ConfigError{Key: "http.log_level", Reason: err.Error()}
	}
	if c.HTTP.RateLimit.RPS < 0 || c.HTTP.RateLimit.Burst < 1 {
		return &tingleerrors.ConfigError{Key: "http.rate_limit", Reason: "rps must be >= 0 and burst >= 1"}
	}

	app := c.App
	if set := countSet(app.PackageID, app.VersionName, app.VersionCode); set != 0 && set != 3 {
		return &tingleerrors.ConfigError{Key: "app", Reason: "package_id, version_name and version_code must be set together"}
	}
	return nil
}

func (o *OAuthConfig) validate() error {
	if o.TokenURL == "" {
		return missing("auth.oauth.token_url")
	}
	if u, err := url.Parse(o.TokenURL); err != nil || !u.IsAbs() {
		return &tingleerrors.ConfigError{Key: "auth.oauth.token_url", Reason: "must be an absolute URL"}
	}
	if o.ClientID == "" {
		return missing("auth.oauth.client_id")
	}
	if o.ClientSecret == "" {
		return missing("auth.oauth.client_secret")
	}
	switch o.Client {
	case TokenClientForm, TokenClientOAuth2:
	default:
		return &tingleerrors.ConfigError{Key: "auth.oauth.client", Reason: fmt.Sprintf("unknown token client %q", o.Client)}
	}
	switch o.Cache.Backend {
	case CacheMemory, CacheKeyring:
	case CacheSQLite:
		if o.Cache.Path == "" {
			return missing("auth.oauth.cache.path")
		}
	default:
		return &tingleerrors.ConfigError{Key: "auth.oauth.cache.backend", Reason: fmt.Sprintf("unknown cache backend %q", o.Cache.Backend)}
	}
	if o.Retry.MaxAttempts < 0 || o.Retry.BaseBackoff < 0 {
		return &tingleerrors.ConfigError{Key: "auth.oauth.retry", Reason: "values must not be negative"}
	}
	return nil
}

func missing(key string) error {
	return &tingleerrors.ConfigError{Key: key, Reason: "required"}
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
