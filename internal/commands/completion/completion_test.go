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
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(completions []string) []string {
	out := make([]string, 0, len(completions))
	for _, c := range completions {
		name, _, _ := strings.Cut(c, "\t")
		out = append(out, name)
	}
	return out
}

func TestCompleteMethods(t *testing.T) {
	completions, directive := CompleteMethods(nil, nil, "")
	assert.Len(t, completions, 7)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	completions, _ = CompleteMethods(nil, nil, "p")
	assert.Equal(t, []string{"POST", "PUT", "PATCH"}, names(completions))
}

func TestCompleteRequestArgs(t *testing.T) {
	completions, _ := CompleteRequestArgs(nil, nil, "DE")
	assert.Equal(t, []string{"DELETE"}, names(completions))

	completions, directive := CompleteRequestArgs(nil, []string{"GET"}, "")
	assert.Empty(t, completions)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
}

func TestCompleteLogLevels(t *testing.T) {
	completions, _ := CompleteLogLevels(nil, nil, "")
	assert.Equal(t, []string{"trace", "debug", "info", "warn", "error"}, names(completions))
}

func TestSafeCompletionWrapper(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		results, directive := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
			return []string{"a", "b"}, cobra.ShellCompDirectiveNoSpace
		})
		assert.Equal(t, []string{"a", "b"}, results)
		assert.Equal(t, cobra.ShellCompDirectiveNoSpace, directive)
	})

	t.Run("panic", func(t *testing.T) {
		results, directive := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
			panic("boom")
		})
		assert.Empty(t, results)
		assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	})

	t.Run("nil results", func(t *testing.T) {
		results, directive := SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		})
		assert.NotNil(t, results)
		assert.Empty(t, results)
		assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	})
}

func TestCompletionCommand(t *testing.T) {
	root := &cobra.Command{Use: "tingle"}
	root.AddCommand(NewCommand())

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), "tingle")
		})
	}

	root.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, root.Execute())
}
