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

package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := tingleerrors.Wrap(original, "additional context")

		if got := wrapped.Error(); got != "additional context: original error" {
			t.Errorf("unexpected message: %s", got)
		}
		if !errors.Is(wrapped, original) {
			t.Error("wrapped error should match original with errors.Is")
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		if wrapped := tingleerrors.Wrap(nil, "context"); wrapped != nil {
			t.Errorf("Wrap(nil, _) should return nil, got: %v", wrapped)
		}
	})
}

func TestWrapf(t *testing.T) {
	original := errors.New("no such file")
	wrapped := tingleerrors.Wrapf(original, "loading %s", "config.yaml")

	if !strings.HasPrefix(wrapped.Error(), "loading config.yaml: ") {
		t.Errorf("unexpected message: %s", wrapped)
	}
	if tingleerrors.Wrapf(nil, "loading %s", "x") != nil {
		t.Error("Wrapf(nil, ...) should return nil")
	}
}

func TestDescribe(t *testing.T) {
	t.Run("user visible error in chain", func(t *testing.T) {
		err := fmt.Errorf("running command: %w", &tingleerrors.CredentialError{
			Provider: "shared_key",
			Reason:   "key is not valid base64",
			Hint:     "pass the key exactly as issued",
		})

		msg, suggestion := tingleerrors.Describe(err)
		if msg != "shared_key credentials: key is not valid base64" {
			t.Errorf("unexpected message: %q", msg)
		}
		if suggestion != "pass the key exactly as issued" {
			t.Errorf("unexpected suggestion: %q", suggestion)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		msg, suggestion := tingleerrors.Describe(errors.New("boom"))
		if msg != "boom" || suggestion != "" {
			t.Errorf("Describe() = %q, %q", msg, suggestion)
		}
	})

	t.Run("nil", func(t *testing.T) {
		msg, suggestion := tingleerrors.Describe(nil)
		if msg != "" || suggestion != "" {
			t.Errorf("Describe(nil) = %q, %q", msg, suggestion)
		}
	})
}

type classified struct {
	class     string
	retryable bool
}

func (c classified) Error() string      { return c.class }
func (c classified) ErrorClass() string { return c.class }
func (c classified) IsRetryable() bool  { return c.retryable }

func TestClassification(t *testing.T) {
	err := tingleerrors.Wrap(classified{class: "server", retryable: true}, "token request")

	if !tingleerrors.IsRetryable(err) {
		t.Error("expected retryable")
	}
	if got := tingleerrors.Class(err); got != "server" {
		t.Errorf("Class() = %q", got)
	}

	plain := errors.New("plain")
	if tingleerrors.IsRetryable(plain) {
		t.Error("unclassified errors are not retryable")
	}
	if got := tingleerrors.Class(plain); got != "unknown" {
		t.Errorf("Class() = %q", got)
	}
}
