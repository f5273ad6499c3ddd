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

// Package tracing installs the OpenTelemetry providers used by the tingle
// CLI: a TracerProvider feeding a console or OTLP exporter, a MeterProvider
// backed by the Prometheus exporter, and the W3C propagator.
//
// Library packages such as pkg/auth only talk to the otel globals, so they
// stay silent until Setup runs.
package tracing
