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

package auth

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// tokenRequests tracks token endpoint calls by outcome (success, failure)
	tokenRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_auth_token_requests_total",
			Help: "Total token endpoint requests by outcome",
		},
		[]string{"outcome"},
	)

	// tokenAcquisitions tracks complete acquisitions by result (acquired, exhausted, cancelled)
	tokenAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_auth_token_acquisitions_total",
			Help: "Total token acquisitions by result",
		},
		[]string{"result"},
	)

	// tokenCacheLookups tracks cache lookups by result (hit, miss)
	tokenCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_auth_token_cache_lookups_total",
			Help: "Total token cache lookups by result",
		},
		[]string{"result"},
	)

	// tokenCacheCorruptions tracks persisted records that failed to parse
	tokenCacheCorruptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_auth_token_cache_corruptions_total",
			Help: "Total corrupted token cache records by backend",
		},
		[]string{"backend"},
	)

	// signingFailures tracks requests that could not be signed
	signingFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tingle_auth_signing_failures_total",
			Help: "Total request signing failures by provider",
		},
		[]string{"provider"},
	)
)

// acquireDuration is recorded through the global OpenTelemetry meter so it
// reaches whichever MeterProvider the host installs. Until one is installed
// the instrument is a no-op.
var acquireDuration, _ = otel.Meter(tracerName).Float64Histogram(
	"tingle.auth.token_acquisition.duration",
	metric.WithDescription("Wall time spent acquiring an access token, including backoff"),
	metric.WithUnit("s"),
)

func recordAcquireDuration(ctx context.Context, elapsed time.Duration, result string) {
	acquireDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("result", result)))
}
