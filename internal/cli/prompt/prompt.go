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

// Package prompt collects interactive answers for config setup.
package prompt

import (
	"context"
	"errors"
)

// ErrNonInteractive is returned when a prompt cannot be shown.
var ErrNonInteractive = errors.New("cannot prompt in non-interactive mode")

// Validator checks an answer. A non-nil error asks again.
type Validator func(answer string) error

// Prompter defines the interface for interactive input collection.
// Implementations are SurveyPrompter (production) and MockPrompter (testing).
type Prompter interface {
	// Input collects a free-form answer.
	Input(ctx context.Context, message, def string, validate Validator) (string, error)

	// Password collects an answer without echoing it.
	Password(ctx context.Context, message string, validate Validator) (string, error)

	// Select presents options and returns the chosen one.
	Select(ctx context.Context, message string, options []string, def string) (string, error)

	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, message string, def bool) (bool, error)

	// IsInteractive returns true if prompts can be displayed
	IsInteractive() bool
}
