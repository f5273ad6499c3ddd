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

package errors

import "fmt"

// ValidationError reports invalid input such as a malformed flag value.
type ValidationError struct {
	// Field identifies which input failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Hint provides actionable guidance for fixing the error
	Hint string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) IsUserVisible() bool { return true }
func (e *ValidationError) UserMessage() string { return e.Error() }
func (e *ValidationError) Suggestion() string  { return e.Hint }

// ConfigError reports a problem in the configuration file.
type ConfigError struct {
	// Path is the config file, empty when the value came from flags
	Path string

	// Key is the dotted configuration key (e.g. "auth.oauth.client_id")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g. file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := "config error"
	if e.Path != "" {
		msg = fmt.Sprintf("%s in %s", msg, e.Path)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Key)
	}
	return fmt.Sprintf("%s: %s", msg, e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

func (e *ConfigError) IsUserVisible() bool { return true }
func (e *ConfigError) UserMessage() string { return e.Error() }

// Suggestion points at the config file or the key to fix.
func (e *ConfigError) Suggestion() string {
	if e.Key != "" {
		return fmt.Sprintf("set %q in the config file or pass it as a flag", e.Key)
	}
	return "check the config file syntax with --config"
}

// CredentialError reports credentials that could not be loaded, decoded
// or verified before any request was sent.
type CredentialError struct {
	// Provider is the auth provider name (e.g. "shared_key", "aws_sigv4")
	Provider string

	// Reason explains the failure without echoing secret material
	Reason string

	// Hint is the suggestion shown to the user
	Hint string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s credentials: %s", e.Provider, e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CredentialError) Unwrap() error {
	return e.Cause
}

func (e *CredentialError) IsUserVisible() bool { return true }
func (e *CredentialError) UserMessage() string { return e.Error() }
func (e *CredentialError) Suggestion() string  { return e.Hint }
