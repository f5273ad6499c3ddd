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
	"errors"
	"fmt"
)

// Sentinel errors for authentication failures.
var (
	// ErrMalformedRequest indicates the request lacks the method, URL or
	// date needed to authenticate it.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrNonASCII indicates the canonical string contains bytes outside
	// the 7-bit ASCII range and cannot be signed.
	ErrNonASCII = errors.New("canonical string contains non-ASCII characters")

	// ErrEmptyKey indicates a shared-key provider was built without key material.
	ErrEmptyKey = errors.New("signing key is empty")

	// ErrTokenAcquisitionExhausted indicates every token request attempt failed.
	ErrTokenAcquisitionExhausted = errors.New("token acquisition exhausted")

	// ErrCacheCorruption indicates a persisted token record could not be parsed.
	// Caches treat it as a miss.
	ErrCacheCorruption = errors.New("token cache corrupted")
)

// SigningError reports a request that could not be signed.
// It is local to the request and never affects shared token state.
type SigningError struct {
	// Op is the signing step that failed (e.g., "sign", "canonicalize").
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *SigningError) Error() string {
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SigningError) Unwrap() error {
	return e.Err
}

// ErrorType classifies token request failures.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or DNS errors
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates request timeout or deadline exceeded
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeAuth indicates rejected client credentials (401, 403, invalid_client)
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeRateLimit indicates rate limiting (429 Too Many Requests)
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates server errors (5xx)
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeClient indicates other client errors (4xx)
	ErrorTypeClient ErrorType = "client"

	// ErrorTypeInvalidResponse indicates a 2xx response without a usable token
	ErrorTypeInvalidResponse ErrorType = "invalid_response"

	// ErrorTypeCancelled indicates the context was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"
)

// TokenRequestError represents a failed call to the token endpoint.
// The OAuth provider converts it into a retry decision; it is never
// returned from Authenticate unless acquisition is exhausted and the
// provider was built with WithFailOnExhausted.
type TokenRequestError struct {
	// Type classifies the error
	Type ErrorType

	// StatusCode is the HTTP status code, zero for transport failures
	StatusCode int

	// ErrorCode is the OAuth "error" field when the server returned one
	ErrorCode string

	// Message is safe to log; it never contains the client secret
	Message string

	// Retryable reports whether a later attempt may succeed
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TokenRequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token request %s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("token request %s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TokenRequestError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error should be retried.
func (e *TokenRequestError) IsRetryable() bool {
	return e.Retryable
}

// ErrorClass returns the classification as a string.
func (e *TokenRequestError) ErrorClass() string {
	return string(e.Type)
}

// classifyStatus maps an HTTP status and optional OAuth error code to an ErrorType.
func classifyStatus(statusCode int, errorCode string) (ErrorType, bool) {
	switch errorCode {
	case "invalid_client", "invalid_grant", "unauthorized_client", "access_denied":
		return ErrorTypeAuth, false
	case "temporarily_unavailable", "server_error":
		return ErrorTypeServer, true
	}

	switch {
	case statusCode >= 500:
		return ErrorTypeServer, true
	case statusCode == 429:
		return ErrorTypeRateLimit, true
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth, false
	case statusCode >= 400:
		return ErrorTypeClient, false
	default:
		return ErrorTypeInvalidResponse, true
	}
}
