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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tombee/tingle/pkg/apiclient"
	"github.com/tombee/tingle/pkg/auth"
	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailed      = 1
	ExitConfigError = 2
	ExitAuthError   = 3
	ExitHTTPError   = 4
	ExitUsageError  = 64 // EX_USAGE from sysexits.h
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUsageError creates an error for invalid arguments or flag combinations
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitUsageError, Message: msg, Cause: cause}
}

// NewHTTPError creates an error for a request the server rejected
func NewHTTPError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitHTTPError, Message: msg, Cause: cause}
}

// ExitCode maps err to the process exit code. Explicit ExitErrors win,
// then the error kind is inspected along the chain.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var (
		cfgErr    *tingleerrors.ConfigError
		validErr  *tingleerrors.ValidationError
		credErr   *tingleerrors.CredentialError
		tokenErr  *auth.TokenRequestError
		signErr   *auth.SigningError
		problem   *apiclient.Problem
		decodeErr *apiclient.DecodeError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &validErr):
		return ExitConfigError
	case errors.As(err, &credErr), errors.As(err, &tokenErr), errors.As(err, &signErr),
		errors.Is(err, auth.ErrTokenAcquisitionExhausted):
		return ExitAuthError
	case errors.As(err, &problem), errors.As(err, &decodeErr):
		return ExitHTTPError
	default:
		return ExitFailed
	}
}

// PrintError writes err and, when one exists in the chain, its suggestion.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}

	msg, suggestion := tingleerrors.Describe(err)
	if msg == "" {
		msg = err.Error()
	}
	fmt.Fprintln(w, RenderError("Error: "+msg))
	if suggestion != "" {
		fmt.Fprintf(w, "\n%s %s\n", RenderLabel("Suggestion:"), suggestion)
	}
}

// HandleExitError prints err and exits with the matching code.
func HandleExitError(err error) {
	if err == nil {
		return
	}

	if GetJSON() {
		_ = EmitJSONError(os.Stdout, "", err)
	} else {
		PrintError(os.Stderr, err)
	}
	os.Exit(ExitCode(err))
}
