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
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// AuthorizationHeader is the header every provider writes.
const AuthorizationHeader = "Authorization"

// DefaultBearerScheme is the scheme used by HeaderProvider and OAuthProvider
// when none is configured.
const DefaultBearerScheme = "Bearer"

// Provider authenticates an outgoing request by mutating its headers.
// Implementations run on the caller's goroutine, before the request is sent.
type Provider interface {
	Authenticate(req *http.Request) error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(req *http.Request) error

// Authenticate calls f(req).
func (f ProviderFunc) Authenticate(req *http.Request) error {
	return f(req)
}

// EmptyProvider does not modify the request.
// Use it for services without authentication, or to discover the supported
// schemes from a WWW-Authenticate response header.
type EmptyProvider struct{}

// Authenticate implements Provider.
func (EmptyProvider) Authenticate(*http.Request) error {
	return nil
}

// ParameterFunc produces the credential that follows the scheme in the
// Authorization header. It may mutate the request (e.g., to add a date header).
type ParameterFunc func(req *http.Request) (string, error)

// StaticParameter returns a ParameterFunc that always yields value.
func StaticParameter(value string) ParameterFunc {
	return func(*http.Request) (string, error) {
		return value, nil
	}
}

// HeaderProvider sets "Authorization: <scheme> <parameter>".
type HeaderProvider struct {
	scheme    string
	parameter ParameterFunc
}

// NewHeaderProvider creates a HeaderProvider. An empty scheme defaults to Bearer.
func NewHeaderProvider(scheme string, parameter ParameterFunc) *HeaderProvider {
	if scheme == "" {
		scheme = DefaultBearerScheme
	}
	return &HeaderProvider{
		scheme:    scheme,
		parameter: parameter,
	}
}

// Scheme returns the configured scheme.
func (p *HeaderProvider) Scheme() string {
	return p.scheme
}

// Authenticate implements Provider.
func (p *HeaderProvider) Authenticate(req *http.Request) error {
	if req == nil {
		return &SigningError{Op: "authenticate", Err: fmt.Errorf("%w: nil request", ErrMalformedRequest)}
	}
	if p.parameter == nil {
		return fmt.Errorf("auth: header provider has no parameter source")
	}

	if req.Header == nil {
		req.Header = make(http.Header)
	}

	parameter, err := p.parameter(req)
	if err != nil {
		return err
	}

	req.Header.Set(AuthorizationHeader, p.scheme+" "+parameter)
	return nil
}

// requestBody returns the request body without consuming it.
// Bodies that cannot be re-read through GetBody are buffered and restored.
func requestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.ContentLength = int64(len(data))
	return data, nil
}
