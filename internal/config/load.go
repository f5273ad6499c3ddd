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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/tingle/internal/secrets"
	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

// Load reads the config file at path, expands ${VAR} references in string
// values, applies TINGLE_* environment overrides, resolves secret
// references and validates the result.
// An empty path loads DefaultPath when that file exists and falls back to
// defaults plus environment otherwise.
func Load(path string) (*Config, error) {
	return load(path, secrets.Default())
}

// LoadReferences is Load without secret resolution: env:, file: and
// keychain: references are left in place.
func LoadReferences(path string) (*Config, error) {
	return load(path, nil)
}

func load(path string, registry *secrets.Registry) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		err := cfg.loadFromFile(path)
		switch {
		case err == nil:
		case !explicit && errors.Is(err, fs.ErrNotExist):
			path = ""
		default:
			return nil, &tingleerrors.ConfigError{
				Path:   path,
				Reason: err.Error(),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if registry != nil {
		if err := cfg.resolveSecrets(context.Background(), registry); err != nil {
			return nil, withPath(err, path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

func withPath(err error, path string) error {
	var cfgErr *tingleerrors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Path == "" {
		cfgErr.Path = path
	}
	return err
}

// resolveSecrets replaces secret references in credential fields with
// their values.
func (c *Config) resolveSecrets(ctx context.Context, registry *secrets.Registry) error {
	fields := []struct {
		key   string
		value *string
	}{
		{"auth.shared_key.key", &c.Auth.SharedKey.Key},
		{"auth.oauth.client_id", &c.Auth.OAuth.ClientID},
		{"auth.oauth.client_secret", &c.Auth.OAuth.ClientSecret},
		{"auth.aws_sigv4.access_key_id", &c.Auth.SigV4.AccessKeyID},
		{"auth.aws_sigv4.secret_access_key", &c.Auth.SigV4.SecretAccessKey},
		{"auth.aws_sigv4.session_token", &c.Auth.SigV4.SessionToken},
	}
	for _, f := range fields {
		value, err := registry.Resolve(ctx, *f.value)
		if err != nil {
			return &tingleerrors.ConfigError{Key: f.key, Reason: err.Error(), Cause: err}
		}
		*f.value = value
	}
	return nil
}

// loadFromFile parses the YAML file at path into c.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.parse(data)
}

// parse decodes YAML after expanding ${VAR} references in every string
// scalar. Expansion happens on parsed values, so secrets containing
// YAML syntax cannot change the document structure.
func (c *Config) parse(data []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if root.Kind == 0 {
		return nil
	}

	var unset []string
	expandNode(&root, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			unset = append(unset, name)
		}
		return value
	})
	if len(unset) > 0 {
		sort.Strings(unset)
		return fmt.Errorf("undefined environment variables: %s", strings.Join(unset, ", "))
	}

	if err := root.Decode(c); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// envRef matches ${NAME}. Bare $NAME is left alone so secrets may contain '$'.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandNode(n *yaml.Node, lookup func(string) string) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Value = envRef.ReplaceAllStringFunc(n.Value, func(ref string) string {
			return lookup(ref[2 : len(ref)-1])
		})
		return
	}
	for _, child := range n.Content {
		expandNode(child, lookup)
	}
}

// loadFromEnv applies TINGLE_* overrides. Environment wins over the file.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("TINGLE_AUTH_MODE"); val != "" {
		c.Auth.Mode = strings.ToLower(val)
	}
	if val := os.Getenv("TINGLE_SHARED_KEY"); val != "" {
		c.Auth.SharedKey.Key = val
	}
	if val := os.Getenv("TINGLE_CLIENT_ID"); val != "" {
		c.Auth.OAuth.ClientID = val
	}
	if val := os.Getenv("TINGLE_CLIENT_SECRET"); val != "" {
		c.Auth.OAuth.ClientSecret = val
	}
	if val := os.Getenv("TINGLE_TOKEN_URL"); val != "" {
		c.Auth.OAuth.TokenURL = val
	}
	if val := os.Getenv("TINGLE_TOKEN_CACHE"); val != "" {
		c.Auth.OAuth.Cache.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("TINGLE_BASE_URL"); val != "" {
		c.HTTP.BaseURL = val
	}
	if val := os.Getenv("TINGLE_HTTP_LOG"); val != "" {
		c.HTTP.LogLevel = strings.ToLower(val)
	}
	if val := os.Getenv("TINGLE_RATE_LIMIT"); val != "" {
		if rps, err := strconv.ParseFloat(val, 64); err == nil {
			c.HTTP.RateLimit.RPS = rps
		}
	}
	if val := os.Getenv("TINGLE_OTEL_EXPORTER"); val != "" {
		c.Telemetry.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" && c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = val
	}
}
