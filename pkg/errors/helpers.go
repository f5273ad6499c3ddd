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

// Package errors holds the error types shared by the tingle packages and CLI.
package errors

import (
	"errors"
	"fmt"
)

// Wrap annotates err with a message. Returns nil when err is nil.
//
//	if err := provider.Authenticate(req); err != nil {
//	    return errors.Wrap(err, "authenticating request")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf annotates err with a formatted message. Returns nil when err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Describe returns the message and suggestion the CLI prints for err.
// The first UserVisibleError in the chain wins; otherwise the raw error
// text is returned with no suggestion.
func Describe(err error) (message, suggestion string) {
	if err == nil {
		return "", ""
	}
	var visible UserVisibleError
	if errors.As(err, &visible) && visible.IsUserVisible() {
		return visible.UserMessage(), visible.Suggestion()
	}
	return err.Error(), ""
}

// IsRetryable reports whether the first ErrorClassifier in err's chain
// considers the failure transient. Unclassified errors are not retryable.
func IsRetryable(err error) bool {
	var classified ErrorClassifier
	if errors.As(err, &classified) {
		return classified.IsRetryable()
	}
	return false
}

// Class returns the classification of the first ErrorClassifier in err's
// chain, or "unknown".
func Class(err error) string {
	var classified ErrorClassifier
	if errors.As(err, &classified) {
		return classified.ErrorClass()
	}
	return "unknown"
}
