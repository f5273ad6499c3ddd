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

package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/tombee/tingle/internal/tracing/export"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// CreateExporter builds the span exporter named by cfg.Type.
// It returns a nil exporter for "none".
func CreateExporter(ctx context.Context, cfg ExporterConfig, console io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Type {
	case ExporterConsole:
		return export.NewConsoleExporter(export.ConsoleConfig{
			Writer:      console,
			PrettyPrint: true,
		})

	case ExporterOTLP, ExporterOTLPHTTP:
		tlsConfig, err := export.BuildTLSConfig(export.TLSConfigInput{
			Enabled:    !cfg.Insecure,
			CACertPath: cfg.CACertPath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config for %s exporter: %w", cfg.Type, err)
		}
		if cfg.Type == ExporterOTLP {
			return export.NewOTLPExporter(ctx, export.OTLPConfig{
				Endpoint:  cfg.Endpoint,
				Insecure:  cfg.Insecure,
				TLSConfig: tlsConfig,
				Headers:   cfg.Headers,
			})
		}
		return export.NewOTLPHTTPExporter(ctx, export.OTLPHTTPConfig{
			Endpoint:  cfg.Endpoint,
			Insecure:  cfg.Insecure,
			TLSConfig: tlsConfig,
			Headers:   cfg.Headers,
		})

	case ExporterNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.Type)
	}
}
