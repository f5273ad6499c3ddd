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

// Package jq filters JSON response bodies with jq expressions.
package jq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout bounds a single filter run.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the largest body a filter accepts (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Filter is a compiled jq expression.
type Filter struct {
	expression   string
	code         *gojq.Code
	timeout      time.Duration
	maxInputSize int
}

// Compile parses and compiles expression. An empty expression yields the
// identity filter.
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		expression = "."
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}

	return &Filter{
		expression:   expression,
		code:         code,
		timeout:      DefaultTimeout,
		maxInputSize: DefaultMaxInputSize,
	}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expression
}

// WithLimits returns a copy of f with a different timeout and input limit.
// Zero values keep the defaults.
func (f *Filter) WithLimits(timeout time.Duration, maxInputSize int) *Filter {
	c := *f
	if timeout > 0 {
		c.timeout = timeout
	}
	if maxInputSize > 0 {
		c.maxInputSize = maxInputSize
	}
	return &c
}

// Apply runs the filter over a JSON document and returns every emitted value.
func (f *Filter) Apply(ctx context.Context, body []byte) ([]any, error) {
	if len(body) > f.maxInputSize {
		return nil, fmt.Errorf("response size (%d bytes) exceeds jq limit (%d bytes)", len(body), f.maxInputSize)
	}

	var input any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			return nil, fmt.Errorf("response is not JSON: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var results []any
	iter := f.code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("jq execution timeout after %v", f.timeout)
			}
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

// Write prints results one per line like jq. With raw set, string results
// are written without quotes.
func Write(w io.Writer, results []any, raw bool) error {
	for _, v := range results {
		if s, ok := v.(string); ok && raw {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
			continue
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode jq result: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", out); err != nil {
			return err
		}
	}
	return nil
}
