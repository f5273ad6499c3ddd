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
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/tingle/internal/cli/prompt"
	"github.com/tombee/tingle/internal/commands/shared"
	"github.com/tombee/tingle/internal/secrets"
)

// keychainStore is the subset of the keychain provider the secret commands use.
type keychainStore interface {
	Set(account, value string) error
	Delete(account string) error
}

func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Store secrets in the system keychain",
		Long: `Store and remove secrets in the system keychain under the "tingle"
service. Reference a stored secret from the config file as keychain:NAME:

  auth:
    oauth:
      client_secret: keychain:client-secret`,
	}
	cmd.AddCommand(newSecretSetCommand(), newSecretDeleteCommand())
	return cmd
}

func newSecretSetCommand() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set NAME",
		Short: "Store a secret",
		Long: `Store a secret under NAME. The value is prompted for without echo,
or read from stdin with --stdin.`,
		Example: `  tingle config secret set client-secret
  vault read -field=key secret/api | tingle config secret set shared-key --stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prompt.NewSurveyPrompter(!shared.IsNonInteractive())
			store := secrets.NewKeychainProvider(secrets.KeychainService)
			return runSecretSet(cmd, p, store, args[0], fromStdin)
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the value from stdin")
	return cmd
}

func newSecretDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a stored secret",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := secrets.NewKeychainProvider(secrets.KeychainService)
			return runSecretDelete(cmd, store, args[0])
		},
	}
}

func runSecretSet(cmd *cobra.Command, p prompt.Prompter, store keychainStore, name string, fromStdin bool) error {
	if err := prompt.ValidateString(name); err != nil {
		return shared.NewUsageError("invalid secret name", err)
	}

	var value string
	switch {
	case fromStdin:
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), prompt.MaxInputSize+1))
		if err != nil {
			return fmt.Errorf("failed to read secret from stdin: %w", err)
		}
		value = string(bytes.TrimRight(data, "\r\n"))
		if err := prompt.ValidateString(value); err != nil {
			return shared.NewUsageError("invalid secret", err)
		}
	case p.IsInteractive():
		var err error
		value, err = p.Password(cmd.Context(), fmt.Sprintf("Value for %s:", name), prompt.Required)
		if err != nil {
			return err
		}
	default:
		return shared.NewUsageError("no terminal to prompt on; pass the value with --stdin", prompt.ErrNonInteractive)
	}
	if value == "" {
		return shared.NewUsageError("secret value is empty", nil)
	}

	if err := store.Set(name, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s stored %s (reference it as keychain:%s)\n",
		shared.StatusOK.Render("OK"), name, name)
	return nil
}

func runSecretDelete(cmd *cobra.Command, store keychainStore, name string) error {
	if err := store.Delete(name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", shared.StatusOK.Render("OK"), name)
	return nil
}
