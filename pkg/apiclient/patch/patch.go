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

// Package patch builds JSON Patch (RFC 6902) documents.
package patch

import "encoding/json"

// Operation names.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpTest    = "test"
	OpMove    = "move"
	OpCopy    = "copy"
)

// Operation is a single patch operation. From is only meaningful for
// move and copy; Value only for add, replace and test.
type Operation struct {
	Op    string
	From  string
	Path  string
	Value any
}

// MarshalJSON emits exactly the members RFC 6902 defines for the operation.
func (o Operation) MarshalJSON() ([]byte, error) {
	switch o.Op {
	case OpAdd, OpReplace, OpTest:
		return json.Marshal(struct {
			Op    string `json:"op"`
			Path  string `json:"path"`
			Value any    `json:"value"`
		}{o.Op, o.Path, o.Value})
	case OpMove, OpCopy:
		return json.Marshal(struct {
			Op   string `json:"op"`
			From string `json:"from"`
			Path string `json:"path"`
		}{o.Op, o.From, o.Path})
	default:
		return json.Marshal(struct {
			Op   string `json:"op"`
			Path string `json:"path"`
		}{o.Op, o.Path})
	}
}

// Document is an ordered list of operations. The zero value is empty and
// ready to use; methods return the document for chaining.
type Document struct {
	ops []Operation
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Add sets value at path, e.g. {"op":"add","path":"/a/b","value":["foo"]}.
func (d *Document) Add(path string, value any) *Document {
	return d.append(Operation{Op: OpAdd, Path: path, Value: value})
}

// Remove deletes the value at path.
func (d *Document) Remove(path string) *Document {
	return d.append(Operation{Op: OpRemove, Path: path})
}

// Replace overwrites the value at path.
func (d *Document) Replace(path string, value any) *Document {
	return d.append(Operation{Op: OpReplace, Path: path, Value: value})
}

// Test asserts that path holds value.
func (d *Document) Test(path string, value any) *Document {
	return d.append(Operation{Op: OpTest, Path: path, Value: value})
}

// Move removes the value at from and adds it at path.
func (d *Document) Move(from, path string) *Document {
	return d.append(Operation{Op: OpMove, From: from, Path: path})
}

// Copy duplicates the value at from into path.
func (d *Document) Copy(from, path string) *Document {
	return d.append(Operation{Op: OpCopy, From: from, Path: path})
}

// Operations returns a copy of the operations in order.
func (d *Document) Operations() []Operation {
	return append([]Operation(nil), d.ops...)
}

// Len returns the number of operations.
func (d *Document) Len() int {
	return len(d.ops)
}

// MarshalJSON encodes the document as a JSON array; an empty document is "[]".
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || len(d.ops) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(d.ops)
}

func (d *Document) append(op Operation) *Document {
	d.ops = append(d.ops, op)
	return d
}
