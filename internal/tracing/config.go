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
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Exporter types accepted by ExporterConfig.Type.
const (
	ExporterNone     = "none"
	ExporterConsole  = "console"
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlp-http"
)

// Config configures telemetry for one CLI invocation.
type Config struct {
	// ServiceName identifies this process in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// SampleRate is the fraction of root spans to sample (0.0 - 1.0).
	SampleRate float64

	// Exporter configures where spans go.
	Exporter ExporterConfig

	// BatchTimeout is how often batched spans are flushed.
	BatchTimeout time.Duration

	// Registry receives the OpenTelemetry metrics. Nil uses the default
	// Prometheus registry, which also holds the promauto counters.
	Registry *prometheus.Registry
}

// ExporterConfig selects a span exporter.
type ExporterConfig struct {
	// Type is "none", "console", "otlp" (gRPC) or "otlp-http".
	Type string

	// Endpoint is the collector address, e.g. "localhost:4317".
	Endpoint string

	// Headers are sent with every export request.
	Headers map[string]string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// CACertPath is a PEM bundle used instead of the system pool.
	CACertPath string
}

// DefaultConfig returns tracing disabled with full sampling.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "tingle",
		ServiceVersion: "dev",
		SampleRate:     1.0,
		Exporter:       ExporterConfig{Type: ExporterNone},
		BatchTimeout:   time.Second,
	}
}

// Validate checks the exporter selection and sample rate.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %v", c.SampleRate)
	}
	switch c.Exporter.Type {
	case "", ExporterNone, ExporterConsole:
	case ExporterOTLP, ExporterOTLPHTTP:
		if c.Exporter.Endpoint == "" {
			return fmt.Errorf("%s exporter requires an endpoint", c.Exporter.Type)
		}
	default:
		return fmt.Errorf("unknown exporter type: %s", c.Exporter.Type)
	}
	return nil
}
