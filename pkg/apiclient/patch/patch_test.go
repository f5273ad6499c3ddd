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

package patch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Replace(t *testing.T) {
	data, err := json.Marshal(New().Replace("Name", "Mr.Zero"))
	require.NoError(t, err)
	assert.Equal(t, `[{"op":"replace","path":"Name","value":"Mr.Zero"}]`, string(data))
}

func TestDocument_AllOperations(t *testing.T) {
	doc := New().
		Add("/a/b/c", []string{"foo", "bar"}).
		Remove("/a/b/x").
		Replace("/a/b/c", 42).
		Test("/a/b/c", 42).
		Move("/a/b/c", "/a/b/d").
		Copy("/a/b/d", "/a/b/e").
		Add("/a/nothing", nil)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"op":"add","path":"/a/b/c","value":["foo","bar"]},
		{"op":"remove","path":"/a/b/x"},
		{"op":"replace","path":"/a/b/c","value":42},
		{"op":"test","path":"/a/b/c","value":42},
		{"op":"move","from":"/a/b/c","path":"/a/b/d"},
		{"op":"copy","from":"/a/b/d","path":"/a/b/e"},
		{"op":"add","path":"/a/nothing","value":null}
	]`, string(data))
	assert.Equal(t, 7, doc.Len())
}

func TestDocument_MoveUsesFromAndPath(t *testing.T) {
	ops := New().Move("/src", "/dst").Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "/src", ops[0].From)
	assert.Equal(t, "/dst", ops[0].Path)
}

func TestDocument_Empty(t *testing.T) {
	data, err := json.Marshal(New())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	var zero Document
	data, err = json.Marshal(&zero)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDocument_OperationsIsCopy(t *testing.T) {
	doc := New().Remove("/a")
	ops := doc.Operations()
	ops[0].Path = "/changed"
	assert.Equal(t, "/a", doc.Operations()[0].Path)
}
