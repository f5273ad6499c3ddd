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

package jq

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		body       string
		want       []any
	}{
		{
			name:       "empty expression is identity",
			expression: "",
			body:       `{"foo":"bar"}`,
			want:       []any{map[string]any{"foo": "bar"}},
		},
		{
			name:       "field extraction",
			expression: ".foo",
			body:       `{"foo":"bar"}`,
			want:       []any{"bar"},
		},
		{
			name:       "map over array",
			expression: "map(.x)",
			body:       `[{"x":1},{"x":2}]`,
			want:       []any{[]any{float64(1), float64(2)}},
		},
		{
			name:       "multiple outputs",
			expression: ".items[].id",
			body:       `{"items":[{"id":"a"},{"id":"b"}]}`,
			want:       []any{"a", "b"},
		},
		{
			name:       "empty body is null",
			expression: ".",
			body:       "",
			want:       []any{nil},
		},
		{
			name:       "no output",
			expression: "empty",
			body:       `{}`,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.expression)
			require.NoError(t, err)

			got, err := f.Apply(context.Background(), []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(".[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jq expression")

	_, err = Compile("undefined_function(1)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jq compilation failed")
}

func TestFilter_Errors(t *testing.T) {
	t.Run("non JSON body", func(t *testing.T) {
		f, err := Compile(".")
		require.NoError(t, err)
		_, err = f.Apply(context.Background(), []byte("<html>"))
		assert.ErrorContains(t, err, "not JSON")
	})

	t.Run("runtime error", func(t *testing.T) {
		f, err := Compile(".foo.bar")
		require.NoError(t, err)
		_, err = f.Apply(context.Background(), []byte(`{"foo":"str"}`))
		assert.Error(t, err)
	})

	t.Run("input too large", func(t *testing.T) {
		f, err := Compile(".")
		require.NoError(t, err)
		_, err = f.WithLimits(0, 4).Apply(context.Background(), []byte(`"12345"`))
		assert.ErrorContains(t, err, "exceeds jq limit")
	})
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []any{"plain", map[string]any{"a": float64(1)}}, true))
	assert.Equal(t, "plain\n{\n  \"a\": 1\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, []any{"quoted"}, false))
	assert.Equal(t, `"quoted"`, strings.TrimSpace(buf.String()))
}
