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

package completion

import (
	"strings"

	"github.com/spf13/cobra"
)

var methods = []string{
	"GET\tRead a resource",
	"POST\tCreate a resource",
	"PUT\tReplace a resource",
	"PATCH\tModify a resource",
	"DELETE\tDelete a resource",
	"HEAD\tRead headers only",
	"OPTIONS\tDescribe the endpoint",
}

// CompleteMethods completes HTTP method names.
func CompleteMethods(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		return filterPrefix(methods, strings.ToUpper(toComplete)), cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteRequestArgs completes the METHOD argument of request. The URL
// argument has no completions.
func CompleteRequestArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return CompleteMethods(cmd, args, toComplete)
}

// CompleteLogLevels completes --log-level values.
func CompleteLogLevels(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		levels := []string{
			"trace\tRequest and response bodies",
			"debug\tToken acquisition and signing details",
			"info\tOne line per request",
			"warn\tRetries and degraded requests",
			"error\tFailures only",
		}
		return filterPrefix(levels, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
}

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns an empty completion list on panic.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

func filterPrefix(values []string, prefix string) []string {
	out := []string{}
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
