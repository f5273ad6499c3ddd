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
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/tingle/internal/cli/prompt"
	"github.com/tombee/tingle/internal/commands/shared"
	"github.com/tombee/tingle/internal/config"
)

// Environment references written when a secret is left blank.
const (
	sharedKeyRef    = "${TINGLE_SHARED_KEY}"
	clientSecretRef = "${TINGLE_CLIENT_SECRET}"
)

var authModes = []string{config.AuthModeNone, config.AuthModeSharedKey, config.AuthModeOAuth, config.AuthModeSigV4}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		Long: `Create a config file by answering a few questions.

Secrets left blank are written as ${TINGLE_SHARED_KEY} or
${TINGLE_CLIENT_SECRET} references and read from the environment at load
time. The file is created with mode 0600.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prompt.NewSurveyPrompter(!shared.IsNonInteractive())
			return runInit(cmd, p, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, p prompt.Prompter, force bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !p.IsInteractive() {
		return shared.NewUsageError("config init needs an interactive terminal", prompt.ErrNonInteractive)
	}

	path, err := resolvePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !force {
		overwrite, err := p.Confirm(ctx, fmt.Sprintf("%s exists. Overwrite?", path), false)
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Config unchanged.")
			return nil
		}
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	cfg, err := collect(ctx, p)
	if err != nil {
		return err
	}
	if err := writeConfig(path, cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", shared.StatusOK.Render("OK"), path)
	return nil
}

// collect asks for the auth mode and the settings that mode needs.
func collect(ctx context.Context, p prompt.Prompter) (*config.Config, error) {
	cfg := config.Default()

	mode, err := p.Select(ctx, "Authentication mode", authModes, config.AuthModeNone)
	if err != nil {
		return nil, err
	}
	cfg.Auth.Mode = mode

	switch mode {
	case config.AuthModeSharedKey:
		key, err := p.Password(ctx, "Shared key (base64, blank to read "+sharedKeyRef+")", optional(prompt.ValidateBase64Key))
		if err != nil {
			return nil, err
		}
		cfg.Auth.SharedKey.Key = orRef(key, sharedKeyRef)

	case config.AuthModeOAuth:
		if err := collectOAuth(ctx, p, &cfg.Auth.OAuth); err != nil {
			return nil, err
		}

	case config.AuthModeSigV4:
		if cfg.Auth.SigV4.Service, err = p.Input(ctx, "AWS service name", "execute-api", prompt.Required); err != nil {
			return nil, err
		}
		if cfg.Auth.SigV4.Region, err = p.Input(ctx, "AWS region", "us-east-1", prompt.Required); err != nil {
			return nil, err
		}
	}

	if cfg.HTTP.LogLevel, err = p.Select(ctx, "HTTP logging", []string{"none", "basic", "headers", "body"}, "none"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func collectOAuth(ctx context.Context, p prompt.Prompter, o *config.OAuthConfig) error {
	var err error
	if o.TokenURL, err = p.Input(ctx, "Token endpoint URL", "", prompt.ValidateURL); err != nil {
		return err
	}
	if o.ClientID, err = p.Input(ctx, "Client ID", "", prompt.Required); err != nil {
		return err
	}
	secret, err := p.Password(ctx, "Client secret (blank to read "+clientSecretRef+")", nil)
	if err != nil {
		return err
	}
	o.ClientSecret = orRef(secret, clientSecretRef)

	if o.Resource, err = p.Input(ctx, "Resource (optional)", "", nil); err != nil {
		return err
	}

	backends := []string{config.CacheMemory, config.CacheKeyring, config.CacheSQLite}
	if o.Cache.Backend, err = p.Select(ctx, "Token cache", backends, config.CacheKeyring); err != nil {
		return err
	}
	if o.Cache.Backend == config.CacheSQLite {
		def, _ := config.DefaultCachePath()
		if o.Cache.Path, err = p.Input(ctx, "Token cache file", def, prompt.Required); err != nil {
			return err
		}
	}
	return nil
}

func optional(v prompt.Validator) prompt.Validator {
	return func(answer string) error {
		if answer == "" {
			return nil
		}
		return v(answer)
	}
}

func orRef(value, ref string) string {
	if value == "" {
		return ref
	}
	return value
}

func writeConfig(path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	header := []byte("# tingle config. ${VAR} references are expanded from the environment.\n")
	if err := os.WriteFile(path, append(header, data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
