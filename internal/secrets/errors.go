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

package secrets

import "fmt"

// Category classifies a resolution failure.
type Category string

const (
	CategoryNotFound      Category = "NOT_FOUND"
	CategoryAccessDenied  Category = "ACCESS_DENIED"
	CategoryInvalidSyntax Category = "INVALID_SYNTAX"
	CategoryUnavailable   Category = "UNAVAILABLE"
)

// ResolutionError reports a reference that could not be resolved. It never
// carries the secret value.
type ResolutionError struct {
	Category  Category
	Reference string
	Provider  string
	Message   string
	Hint      string
	Cause     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("secret %s: %s (%s)", e.Reference, e.Message, e.Category)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// UserMessage implements errors.UserVisibleError.
func (e *ResolutionError) UserMessage() string {
	return e.Error()
}

// Suggestion implements errors.UserVisibleError.
func (e *ResolutionError) Suggestion() string {
	return e.Hint
}

// IsUserVisible implements errors.UserVisibleError.
func (e *ResolutionError) IsUserVisible() bool {
	return true
}

func newError(category Category, provider, key, message string, cause error) *ResolutionError {
	return &ResolutionError{
		Category:  category,
		Reference: provider + ":" + key,
		Provider:  provider,
		Message:   message,
		Cause:     cause,
	}
}
