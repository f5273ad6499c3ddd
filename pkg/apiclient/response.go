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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ResourceResponse is the decoded result of a request.
// At most one of Resource and Problem is set; both are nil for empty bodies.
type ResourceResponse[T any] struct {
	StatusCode int
	Header     http.Header
	Resource   *T
	Problem    *Problem
}

// Successful reports a 2xx status.
func (r *ResourceResponse[T]) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// IsUnauthorized reports a 401 status.
func (r *ResourceResponse[T]) IsUnauthorized() bool {
	return r.StatusCode == http.StatusUnauthorized
}

// DecodeError reports a response body that could not be decoded. The
// partially built ResourceResponse is still returned alongside it.
type DecodeError struct {
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response body (status %d): %v", e.StatusCode, e.Err)
}

// Unwrap returns the underlying JSON error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Send runs req through c and decodes the body. A non-empty 2xx body is
// decoded into T; any other non-empty body is decoded into a Problem.
func Send[T any](ctx context.Context, c *Client, req *http.Request) (*ResourceResponse[T], error) {
	resp, body, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &ResourceResponse[T]{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}

	if result.Successful() {
		var resource T
		if err := json.Unmarshal(body, &resource); err != nil {
			return result, &DecodeError{StatusCode: resp.StatusCode, Err: err}
		}
		result.Resource = &resource
		return result, nil
	}

	var problem Problem
	if err := json.Unmarshal(body, &problem); err != nil {
		return result, &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}
	result.Problem = &problem
	return result, nil
}

// NewJSONRequest builds a request whose body is the JSON encoding of body.
// A nil body sends no payload.
func NewJSONRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
