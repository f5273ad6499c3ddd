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

package shared

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/tingle/internal/config"
	"github.com/tombee/tingle/internal/log"
	"github.com/tombee/tingle/internal/tracing"
)

// Runtime is the per-invocation state shared by commands: the loaded
// config, the logger and telemetry.
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger

	telemetry *tracing.Provider
	errOut    io.Writer
}

// Start loads the config named by --config and sets up logging and,
// when an exporter is configured or --print-metrics is set, telemetry.
// Close must be called before the command returns.
func Start(cmd *cobra.Command) (*Runtime, error) {
	logger := NewLogger(cmd.ErrOrStderr())

	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		errOut: cmd.ErrOrStderr(),
	}

	if cfg.Telemetry.Exporter != tracing.ExporterNone || GetPrintMetrics() {
		version, _, _ := GetVersion()
		rt.telemetry, err = cfg.SetupTracing(cmd.Context(), version, cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("failed to set up telemetry: %w", err)
		}
	}

	logger.Debug("runtime started",
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("exporter", cfg.Telemetry.Exporter),
	)
	return rt, nil
}

// NewLogger builds the CLI logger: environment settings first, then
// --log-level, --verbose and --quiet.
func NewLogger(w io.Writer) *slog.Logger {
	cfg := log.FromEnv()
	cfg.Output = w

	if os.Getenv("LOG_FORMAT") == "" {
		if f, ok := w.(*os.File); ok && IsTerminal(f) {
			cfg.Format = log.FormatText
		}
	}

	switch {
	case GetLogLevel() != "":
		cfg.Level = GetLogLevel()
	case GetVerbose():
		cfg.Level = "debug"
	case GetQuiet():
		cfg.Level = "error"
	}
	return log.WithComponent(log.New(cfg), "cli")
}

// Close flushes telemetry and prints metrics when requested.
func (r *Runtime) Close(ctx context.Context) error {
	if r == nil || r.telemetry == nil {
		return nil
	}

	var printErr error
	if GetPrintMetrics() {
		printErr = r.telemetry.WriteMetrics(r.errOut)
	}
	if err := r.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
		r.Logger.Warn("telemetry shutdown failed", slog.Any("error", err))
	}
	return printErr
}
