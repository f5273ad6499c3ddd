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

package apiclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tombee/tingle/pkg/httpclient"
)

// LogLevel selects how much of each exchange LoggingMiddleware records.
type LogLevel int

const (
	// LogNone disables logging.
	LogNone LogLevel = iota
	// LogBasic logs request and response lines.
	LogBasic
	// LogHeaders adds request and response headers.
	LogHeaders
	// LogBody adds textual bodies.
	LogBody
)

// ParseLogLevel maps "none", "basic", "headers" and "body" to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return LogNone, nil
	case "basic":
		return LogBasic, nil
	case "headers":
		return LogHeaders, nil
	case "body":
		return LogBody, nil
	default:
		return LogNone, fmt.Errorf("unknown http log level %q", s)
	}
}

type startTimeKey struct{}

// LoggingMiddleware writes "--> METHOD url" and "<-- status url" records.
// URLs are sanitized and credential headers redacted before logging.
type LoggingMiddleware struct {
	level    LogLevel
	logLevel slog.Level
	logger   *slog.Logger
	now      func() time.Time
}

// NewLoggingMiddleware creates a LoggingMiddleware that emits at logLevel.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel, logLevel slog.Level) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{
		level:    level,
		logLevel: logLevel,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessRequest logs the outgoing request and stamps its start time.
func (m *LoggingMiddleware) ProcessRequest(req *http.Request) (*http.Request, error) {
	if m.level == LogNone {
		return req, nil
	}
	ctx := context.WithValue(req.Context(), startTimeKey{}, m.now())
	req = req.WithContext(ctx)

	body, hasBody := requestBody(req)
	attrs := []slog.Attr{}
	if hasBody {
		size := int64(len(body))
		if body == nil {
			size = req.ContentLength
		}
		attrs = append(attrs, slog.Int64("body_bytes", size))
		if ct := req.Header.Get("Content-Type"); ct != "" && m.level >= LogHeaders {
			attrs = append(attrs, slog.String("content_type", ct))
		}
	}
	if m.level >= LogHeaders {
		attrs = append(attrs, headerGroup(req.Header))
	}
	if m.level >= LogBody && hasBody {
		attrs = append(attrs, bodyAttr(body))
	}

	m.logger.LogAttrs(ctx, m.logLevel,
		fmt.Sprintf("--> %s %s", req.Method, httpclient.SanitizeURL(req.URL)), attrs...)
	return req, nil
}

// ProcessResponse logs the response line or the transport failure.
func (m *LoggingMiddleware) ProcessResponse(req *http.Request, resp *http.Response, body []byte, err error) {
	if m.level == LogNone {
		return
	}
	ctx := req.Context()

	if err != nil {
		m.logger.LogAttrs(ctx, m.logLevel, "<-- HTTP FAILED", slog.String("error", err.Error()))
		return
	}

	attrs := []slog.Attr{slog.Int("body_bytes", len(body))}
	if started, ok := ctx.Value(startTimeKey{}).(time.Time); ok {
		attrs = append(attrs, slog.Int64("duration_ms", m.now().Sub(started).Milliseconds()))
	}
	if m.level >= LogHeaders {
		attrs = append(attrs, headerGroup(resp.Header))
	}
	if m.level >= LogBody && len(body) > 0 {
		attrs = append(attrs, bodyAttr(body))
	}

	m.logger.LogAttrs(ctx, m.logLevel,
		fmt.Sprintf("<-- %d %s", resp.StatusCode, httpclient.SanitizeURL(req.URL)), attrs...)
}

// requestBody returns a copy of the request body without consuming it.
func requestBody(req *http.Request) ([]byte, bool) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody == nil {
		return nil, req.ContentLength > 0
	}
	rc, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false
	}
	return data, true
}

func headerGroup(h http.Header) slog.Attr {
	redacted := httpclient.RedactHeaders(h)
	keys := make([]string, 0, len(redacted))
	for k := range redacted {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, strings.Join(redacted[k], ", ")))
	}
	return slog.Group("headers", attrs...)
}

func bodyAttr(body []byte) slog.Attr {
	if !utf8.Valid(body) {
		return slog.String("body", fmt.Sprintf("binary %d-byte body omitted", len(body)))
	}
	return slog.String("body", string(body))
}
