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

package apiclient

import (
	"fmt"
	"sort"
	"strings"
)

// Problem is an RFC 7807 problem document, extended with the validation
// "errors" map and the legacy error_code/error_description pair.
type Problem struct {
	// Type is a URI reference identifying the problem type.
	Type string `json:"type,omitempty"`

	// Title is a short summary of the problem type.
	Title string `json:"title,omitempty"`

	// Detail explains this occurrence of the problem.
	Detail string `json:"detail,omitempty"`

	// Instance identifies this occurrence of the problem.
	Instance string `json:"instance,omitempty"`

	// Errors maps field names to validation messages.
	Errors map[string][]string `json:"errors,omitempty"`

	ErrorCode        string `json:"error_code,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Code returns Title, falling back to ErrorCode.
func (p *Problem) Code() string {
	if p.Title != "" {
		return p.Title
	}
	return p.ErrorCode
}

// Description returns Detail, falling back to ErrorDescription.
func (p *Problem) Description() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.ErrorDescription
}

// Error implements the error interface.
func (p *Problem) Error() string {
	var b strings.Builder
	b.WriteString("problem")
	if code := p.Code(); code != "" {
		fmt.Fprintf(&b, " %s", code)
	}
	if desc := p.Description(); desc != "" {
		fmt.Fprintf(&b, ": %s", desc)
	}
	if len(p.Errors) > 0 {
		fields := make([]string, 0, len(p.Errors))
		for field := range p.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		fmt.Fprintf(&b, " (invalid: %s)", strings.Join(fields, ", "))
	}
	return b.String()
}
