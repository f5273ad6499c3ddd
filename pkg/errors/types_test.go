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
	"io/fs"
	"testing"

	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *tingleerrors.ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &tingleerrors.ValidationError{Field: "method", Message: "must not be empty", Hint: "pass --method"},
			wantMsg: "validation failed on method: must not be empty",
		},
		{
			name:    "without field",
			err:     &tingleerrors.ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Suggestion(); got != tt.err.Hint {
				t.Errorf("Suggestion() = %q, want %q", got, tt.err.Hint)
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	tests := []struct {
		name           string
		err            *tingleerrors.ConfigError
		wantMsg        string
		wantSuggestion string
	}{
		{
			name:           "path and key",
			err:            &tingleerrors.ConfigError{Path: "tingle.yaml", Key: "auth.oauth.client_id", Reason: "required"},
			wantMsg:        "config error in tingle.yaml at auth.oauth.client_id: required",
			wantSuggestion: `set "auth.oauth.client_id" in the config file or pass it as a flag`,
		},
		{
			name:           "reason only",
			err:            &tingleerrors.ConfigError{Reason: "unreadable"},
			wantMsg:        "config error: unreadable",
			wantSuggestion: "check the config file syntax with --config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Suggestion(); got != tt.wantSuggestion {
				t.Errorf("Suggestion() = %q, want %q", got, tt.wantSuggestion)
			}
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	err := &tingleerrors.ConfigError{Path: "missing.yaml", Reason: "cannot read", Cause: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("ConfigError should unwrap to its cause")
	}
}

func TestCredentialError(t *testing.T) {
	cause := errors.New("illegal base64 data at input byte 3")
	err := &tingleerrors.CredentialError{Provider: "shared_key", Reason: "cannot decode key", Cause: cause}

	if got := err.Error(); got != "shared_key credentials: cannot decode key" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("CredentialError should unwrap to its cause")
	}

	var visible tingleerrors.UserVisibleError = err
	if !visible.IsUserVisible() {
		t.Error("credential errors are user visible")
	}
}
