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

package prompt

import (
	"context"
	"fmt"
)

// MockPrompter implements Prompter with scripted responses for testing.
// Responses are consumed in call order; when they run out the default is
// returned.
type MockPrompter struct {
	responses    []any
	currentIndex int
	interactive  bool
	callLog      []string
}

// NewMockPrompter creates a new mock prompter with pre-scripted responses.
func NewMockPrompter(interactive bool, responses ...any) *MockPrompter {
	return &MockPrompter{
		responses:   responses,
		interactive: interactive,
	}
}

func (mp *MockPrompter) next(call string) (any, bool) {
	mp.callLog = append(mp.callLog, call)
	if mp.currentIndex >= len(mp.responses) {
		return nil, false
	}
	resp := mp.responses[mp.currentIndex]
	mp.currentIndex++
	return resp, true
}

func (mp *MockPrompter) nextString(call, def string, validate Validator) (string, error) {
	if !mp.interactive {
		return "", ErrNonInteractive
	}
	resp, ok := mp.next(call)
	if !ok {
		return def, nil
	}
	str, isStr := resp.(string)
	if !isStr {
		return "", fmt.Errorf("mock response for %s is not a string", call)
	}
	if validate != nil {
		if err := validate(str); err != nil {
			return "", err
		}
	}
	return str, nil
}

// Input returns the next string response.
func (mp *MockPrompter) Input(ctx context.Context, message, def string, validate Validator) (string, error) {
	return mp.nextString(fmt.Sprintf("Input(%s)", message), def, validate)
}

// Password returns the next string response.
func (mp *MockPrompter) Password(ctx context.Context, message string, validate Validator) (string, error) {
	return mp.nextString(fmt.Sprintf("Password(%s)", message), "", validate)
}

// Select returns the next string response, which must be one of options.
func (mp *MockPrompter) Select(ctx context.Context, message string, options []string, def string) (string, error) {
	choice, err := mp.nextString(fmt.Sprintf("Select(%s)", message), def, nil)
	if err != nil {
		return "", err
	}
	for _, opt := range options {
		if opt == choice {
			return choice, nil
		}
	}
	return "", fmt.Errorf("mock response %q is not one of %v", choice, options)
}

// Confirm returns the next boolean response.
func (mp *MockPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if !mp.interactive {
		return false, ErrNonInteractive
	}
	resp, ok := mp.next(fmt.Sprintf("Confirm(%s)", message))
	if !ok {
		return def, nil
	}
	b, isBool := resp.(bool)
	if !isBool {
		return false, fmt.Errorf("mock response for Confirm(%s) is not a bool", message)
	}
	return b, nil
}

// IsInteractive returns the configured interactive state.
func (mp *MockPrompter) IsInteractive() bool {
	return mp.interactive
}

// GetCallLog returns the prompts shown, in order.
func (mp *MockPrompter) GetCallLog() []string {
	return mp.callLog
}
