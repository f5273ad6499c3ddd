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

// UserVisibleError is implemented by errors that carry a message and an
// actionable suggestion for the person running the CLI.
type UserVisibleError interface {
	error

	// IsUserVisible returns false for internal errors whose details
	// should not be shown.
	IsUserVisible() bool

	// UserMessage returns the message to print.
	UserMessage() string

	// Suggestion returns guidance for resolving the error, or "".
	Suggestion() string
}

// ErrorClassifier is implemented by errors that can be grouped for metrics
// and retry decisions, such as token endpoint failures.
type ErrorClassifier interface {
	error

	// ErrorClass returns the category, e.g. "auth", "timeout", "server".
	ErrorClass() string

	// IsRetryable returns true if a later attempt may succeed.
	IsRetryable() bool
}
