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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/tingle/internal/commands/shared"
	"github.com/tombee/tingle/internal/config"
	"github.com/tombee/tingle/internal/log"
	"github.com/tombee/tingle/internal/secrets"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect the config file",
		Long: `Create and inspect the tingle config file.

Subcommands:
  init     - Create a config file interactively
  show     - Display the effective configuration with secrets masked
  path     - Show config file location
  validate - Check the config file
  secret   - Store secrets in the system keychain`,
	}

	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigValidateCommand())
	cmd.AddCommand(newSecretCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration after ${VAR} expansion, environment
overrides and defaults. Secrets are masked; env:, file: and keychain:
references are shown as written.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(shared.GetConfigPath())
			if err != nil {
				return err
			}
			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					AuthMode string `json:"auth_mode"`
				}{shared.NewJSONResponse("config validate"), cfg.Auth.Mode})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s config is valid (auth mode: %s)\n",
				shared.StatusOK.Render("OK"), cfg.Auth.Mode)
			return nil
		},
	}
}

func resolvePath() (string, error) {
	if p := shared.GetConfigPath(); p != "" {
		return p, nil
	}
	p, err := config.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return p, nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolvePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadReferences(shared.GetConfigPath())
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(maskSensitiveConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if shared.GetJSON() {
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("failed to convert config: %w", err)
		}
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			Config map[string]any `json:"config"`
		}{shared.NewJSONResponse("config show"), tree})
	}

	if cfgPath, err := resolvePath(); err == nil {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", shared.RenderLabel("# "+cfgPath))
		}
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// maskSensitiveConfig returns a copy of cfg with secrets masked. Secret
// references are not secret and are kept.
func maskSensitiveConfig(cfg *config.Config) *config.Config {
	registry := secrets.Default()
	mask := func(value *string, sanitize func(string) string) {
		if *value != "" && !registry.IsReference(*value) {
			*value = sanitize(*value)
		}
	}

	masked := *cfg
	mask(&masked.Auth.SharedKey.Key, log.SanitizeSecret)
	mask(&masked.Auth.OAuth.ClientSecret, log.SanitizeSecret)
	mask(&masked.Auth.SigV4.SecretAccessKey, log.SanitizeSecret)
	mask(&masked.Auth.SigV4.SessionToken, log.SanitizeSecret)
	mask(&masked.Auth.SigV4.AccessKeyID, log.SanitizeAPIKey)
	if len(cfg.Telemetry.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Telemetry.Headers))
		for k, v := range cfg.Telemetry.Headers {
			mask(&v, log.SanitizeSecret)
			headers[k] = v
		}
		masked.Telemetry.Headers = headers
	}
	return &masked
}
