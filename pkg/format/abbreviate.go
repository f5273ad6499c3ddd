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

// Package format holds small display helpers.
package format

import (
	"math"
	"strconv"
	"strings"
)

type abbreviation struct {
	threshold float64
	divisor   float64
	suffix    string
}

// Values switch to the next suffix one order of magnitude early, so
// 260,000 renders as "0.3M" rather than "260K".
var abbreviations = []abbreviation{
	{0, 1, ""},
	{1_000, 1_000, "K"},
	{100_000, 1_000_000, "M"},
	{100_000_000, 1_000_000_000, "B"},
	{100_000_000_000, 1_000_000_000_000, "T"},
}

// Abbreviate renders n with a K/M/B/T suffix and at most one fraction
// digit, e.g. 10300 -> "10.3K", 3000120 -> "3M".
func Abbreviate(n int64) string {
	magnitude := math.Abs(float64(n))
	chosen := abbreviations[0]
	for _, a := range abbreviations {
		if magnitude < a.threshold {
			break
		}
		chosen = a
	}

	s := strconv.FormatFloat(float64(n)/chosen.divisor, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	if s == "-0" {
		s = "0"
	}
	return s + chosen.suffix
}
