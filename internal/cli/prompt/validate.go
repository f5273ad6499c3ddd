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
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// MaxInputSize is the maximum allowed answer size in bytes.
const MaxInputSize = 65536

// ValidateString rejects null bytes, control characters and oversized input.
func ValidateString(input string) error {
	if len(input) > MaxInputSize {
		return fmt.Errorf("input exceeds maximum size of %d bytes", MaxInputSize)
	}

	for i, r := range input {
		if r == 0 {
			return fmt.Errorf("input contains null byte at position %d", i)
		}
		if unicode.IsControl(r) && r != '\t' {
			return fmt.Errorf("input contains invalid control character at position %d", i)
		}
	}
	return nil
}

// Required rejects blank answers.
func Required(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("a value is required")
	}
	return nil
}

// ValidateURL requires an absolute http or https URL.
func ValidateURL(input string) error {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http:// or https:// URL")
	}
	return nil
}

// ValidateBase64Key requires a non-empty standard base64 value.
func ValidateBase64Key(input string) error {
	if err := Required(input); err != nil {
		return err
	}
	if _, err := base64.StdEncoding.DecodeString(strings.TrimSpace(input)); err != nil {
		return fmt.Errorf("key must be standard base64")
	}
	return nil
}
