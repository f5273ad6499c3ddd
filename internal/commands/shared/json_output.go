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
	"encoding/json"
	"io"

	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

// JSONVersion is the envelope schema version.
const JSONVersion = "1.0"

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError is a structured error with code, message and suggestion
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Class      string `json:"class,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error codes for structured JSON output
const (
	ErrorCodeInternal = "E000"
	ErrorCodeConfig   = "E001"
	ErrorCodeAuth     = "E002"
	ErrorCodeHTTP     = "E003"
	ErrorCodeUsage    = "E004"
)

// NewJSONResponse returns a successful envelope for command.
func NewJSONResponse(command string) JSONResponse {
	return JSONResponse{Version: JSONVersion, Command: command, Success: true}
}

// EmitJSON writes response as indented JSON.
func EmitJSON(w io.Writer, response any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// EmitJSONError writes a failure envelope describing err.
func EmitJSONError(w io.Writer, command string, err error) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	msg, suggestion := tingleerrors.Describe(err)
	if msg == "" {
		msg = err.Error()
	}
	jsonErr := JSONError{
		Code:       errorCodeFor(ExitCode(err)),
		Message:    msg,
		Suggestion: suggestion,
	}
	if class := tingleerrors.Class(err); class != "unknown" {
		jsonErr.Class = class
	}

	return EmitJSON(w, errorResponse{
		JSONResponse: JSONResponse{Version: JSONVersion, Command: command},
		Errors:       []JSONError{jsonErr},
	})
}

func errorCodeFor(exitCode int) string {
	switch exitCode {
	case ExitConfigError:
		return ErrorCodeConfig
	case ExitAuthError:
		return ErrorCodeAuth
	case ExitHTTPError:
		return ErrorCodeHTTP
	case ExitUsageError:
		return ErrorCodeUsage
	default:
		return ErrorCodeInternal
	}
}
