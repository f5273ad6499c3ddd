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

	"github.com/AlecAivazis/survey/v2"
)

// SurveyPrompter implements Prompter using the survey library.
type SurveyPrompter struct {
	interactive bool
}

// NewSurveyPrompter creates a new survey-based prompter.
func NewSurveyPrompter(interactive bool) *SurveyPrompter {
	return &SurveyPrompter{interactive: interactive}
}

func surveyValidator(validate Validator) survey.Validator {
	return func(ans interface{}) error {
		str, ok := ans.(string)
		if !ok {
			return nil
		}
		if err := ValidateString(str); err != nil {
			return err
		}
		if validate == nil {
			return nil
		}
		return validate(str)
	}
}

// Input collects a string answer using survey.Input.
func (sp *SurveyPrompter) Input(ctx context.Context, message, def string, validate Validator) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}

	var result string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &result,
		survey.WithValidator(surveyValidator(validate)))
	return result, err
}

// Password collects a secret using survey.Password.
func (sp *SurveyPrompter) Password(ctx context.Context, message string, validate Validator) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}

	var result string
	err := survey.AskOne(&survey.Password{Message: message}, &result,
		survey.WithValidator(surveyValidator(validate)))
	return result, err
}

// Select collects a choice using survey.Select.
func (sp *SurveyPrompter) Select(ctx context.Context, message string, options []string, def string) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}

	var result string
	prompt := &survey.Select{Message: message, Options: options}
	if def != "" {
		prompt.Default = def
	}
	err := survey.AskOne(prompt, &result)
	return result, err
}

// Confirm asks a yes/no question using survey.Confirm.
func (sp *SurveyPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if !sp.interactive {
		return false, ErrNonInteractive
	}

	var result bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &result)
	return result, err
}

// IsInteractive returns true if prompts can be displayed.
func (sp *SurveyPrompter) IsInteractive() bool {
	return sp.interactive
}
