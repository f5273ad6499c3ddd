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

package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/tingle/internal/commands/completion"
	"github.com/tombee/tingle/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for tingle
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tingle",
		Short: "tingle - signed HTTP API client",
		Long: `tingle sends requests to HTTP APIs that authenticate with shared-key
HMAC signatures, OAuth client credentials or AWS Signature V4.

Run 'tingle config init' to create a config file.
Run 'tingle request GET <url>' to send a signed request.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	registerGlobalFlags(cmd.PersistentFlags())
	_ = cmd.RegisterFlagCompletionFunc("log-level", completion.CompleteLogLevels)
	return cmd
}

func registerGlobalFlags(fs *pflag.FlagSet) {
	flags := shared.RegisterFlagPointers()

	fs.BoolVarP(flags.Verbose, "verbose", "v", false, "Enable debug logging")
	fs.BoolVarP(flags.Quiet, "quiet", "q", false, "Only log errors")
	fs.BoolVar(flags.JSON, "json", false, "Output in JSON format")
	fs.StringVar(flags.Config, "config", "", "Path to config file (default: ~/.config/tingle/config.yaml)")
	fs.StringVar(flags.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.BoolVar(flags.PrintMetrics, "print-metrics", false, "Print Prometheus metrics to stderr on exit")
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
