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
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SharedKeyProvider signs requests with a pre-shared key.
// It is safe for concurrent use; the key is never mutated after construction.
type SharedKeyProvider struct {
	key        []byte
	dateHeader string
	header     *HeaderProvider
	now        func() time.Time
	logger     *slog.Logger
}

// SharedKeyOption configures a SharedKeyProvider.
type SharedKeyOption func(*SharedKeyProvider)

// WithSharedKeyScheme overrides the Authorization scheme (default "SharedKey").
func WithSharedKeyScheme(scheme string) SharedKeyOption {
	return func(p *SharedKeyProvider) {
		if scheme != "" {
			p.header = NewHeaderProvider(scheme, p.parameter)
		}
	}
}

// WithDateHeader overrides the date header name (default "x-ms-date").
func WithDateHeader(name string) SharedKeyOption {
	return func(p *SharedKeyProvider) {
		if name != "" {
			p.dateHeader = name
		}
	}
}

// WithSharedKeyClock overrides the clock used for generated date headers.
func WithSharedKeyClock(now func() time.Time) SharedKeyOption {
	return func(p *SharedKeyProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSharedKeyLogger sets the logger.
func WithSharedKeyLogger(logger *slog.Logger) SharedKeyOption {
	return func(p *SharedKeyProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewSharedKeyProvider creates a provider that signs with key.
// The key is copied.
func NewSharedKeyProvider(key []byte, opts ...SharedKeyOption) (*SharedKeyProvider, error) {
	if len(key) == 0 {
		return nil, &SigningError{Op: "configure", Err: ErrEmptyKey}
	}

	p := &SharedKeyProvider{
		key:        append([]byte(nil), key...),
		dateHeader: DefaultDateHeader,
		now:        time.Now,
		logger:     slog.Default(),
	}
	p.header = NewHeaderProvider(DefaultSharedKeyScheme, p.parameter)

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// NewSharedKeyProviderBase64 creates a provider from a base64-encoded key.
func NewSharedKeyProviderBase64(encodedKey string, opts ...SharedKeyOption) (*SharedKeyProvider, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, &SigningError{Op: "configure", Err: fmt.Errorf("invalid base64 key: %w", err)}
	}
	return NewSharedKeyProvider(key, opts...)
}

// Scheme returns the Authorization scheme.
func (p *SharedKeyProvider) Scheme() string {
	return p.header.Scheme()
}

// DateHeader returns the date header name.
func (p *SharedKeyProvider) DateHeader() string {
	return p.dateHeader
}

// Authenticate implements Provider.
// It sets the date header when missing and writes the signed Authorization header.
func (p *SharedKeyProvider) Authenticate(req *http.Request) error {
	if err := p.header.Authenticate(req); err != nil {
		signingFailures.WithLabelValues("shared_key").Inc()
		p.logger.Debug("shared key signing failed",
			"method", methodOf(req),
			"error", err,
		)
		return err
	}
	return nil
}

// parameter computes the signature for req, adding the date header if needed.
func (p *SharedKeyProvider) parameter(req *http.Request) (string, error) {
	parts, err := p.canonicalParts(req)
	if err != nil {
		return "", err
	}
	return Sign(p.key, parts)
}

// canonicalParts extracts the signed components of req.
func (p *SharedKeyProvider) canonicalParts(req *http.Request) (CanonicalParts, error) {
	if req.Method == "" {
		return CanonicalParts{}, &SigningError{Op: "canonicalize", Err: fmt.Errorf("%w: method is required", ErrMalformedRequest)}
	}
	if req.URL == nil {
		return CanonicalParts{}, &SigningError{Op: "canonicalize", Err: fmt.Errorf("%w: URL is required", ErrMalformedRequest)}
	}

	length := req.ContentLength
	if length <= 0 {
		body, err := requestBody(req)
		if err != nil {
			return CanonicalParts{}, &SigningError{Op: "canonicalize", Err: err}
		}
		length = int64(len(body))
	}

	date := req.Header.Get(p.dateHeader)
	if date == "" {
		date = FormatDate(p.now())
		req.Header.Set(p.dateHeader, date)
	}

	return CanonicalParts{
		Method:          req.Method,
		ContentLength:   length,
		ContentType:     req.Header.Get("Content-Type"),
		DateHeaderName:  p.dateHeader,
		DateHeaderValue: date,
		Path:            req.URL.Path,
	}, nil
}

func methodOf(req *http.Request) string {
	if req == nil {
		return ""
	}
	return req.Method
}
