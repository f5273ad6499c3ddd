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

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/tingle/internal/commands/shared"
	"github.com/tombee/tingle/pkg/apiclient/multipart"
	"github.com/tombee/tingle/pkg/apiclient/patch"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"
	contentTypeText      = "text/plain; charset=utf-8"
)

type requestBody struct {
	contentType string
	data        []byte
}

func (b *requestBody) apply(req *http.Request) {
	(&multipart.Body{ContentType: b.contentType, Data: b.data}).Apply(req)
}

// buildBody returns nil when no body flag is set. The flags are mutually
// exclusive.
func buildBody(stdin io.Reader, opts *options) (*requestBody, error) {
	switch {
	case opts.data != "":
		return dataBody(stdin, opts.data)
	case len(opts.form) > 0:
		return formBody(opts.form)
	case len(opts.patches) > 0:
		return patchBody(opts.patches)
	default:
		return nil, nil
	}
}

func dataBody(stdin io.Reader, data string) (*requestBody, error) {
	content, err := readValue(stdin, data)
	if err != nil {
		return nil, err
	}
	ct := contentTypeText
	if json.Valid(content) {
		ct = contentTypeJSON
	}
	return &requestBody{contentType: ct, data: content}, nil
}

// readValue resolves the @file and @- forms.
func readValue(stdin io.Reader, value string) ([]byte, error) {
	switch {
	case value == "@-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		return data, nil
	case strings.HasPrefix(value, "@"):
		data, err := os.ReadFile(value[1:])
		if err != nil {
			return nil, shared.NewUsageError("failed to read body file", err)
		}
		return data, nil
	default:
		return []byte(value), nil
	}
}

func formBody(fields []string) (*requestBody, error) {
	b := multipart.NewBuilder(multipart.FormData)
	for _, field := range fields {
		name, value, ok := strings.Cut(field, "=")
		if !ok || name == "" {
			return nil, shared.NewUsageError(fmt.Sprintf("invalid form field %q (want name=value or name=@file)", field), nil)
		}
		if !strings.HasPrefix(value, "@") {
			b.AddFormField(name, value)
			continue
		}

		path := value[1:]
		f, err := os.Open(path)
		if err != nil {
			return nil, shared.NewUsageError("failed to open form file", err)
		}
		b.AddFormFile(name, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), f)
		f.Close()
	}

	body, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}
	return &requestBody{contentType: body.ContentType, data: body.Data}, nil
}

// patchBody builds an RFC 6902 document from "op path [arg]" specs. The
// argument is a JSON value for add, replace and test (a bare word is taken
// as a string) and the source path for move and copy.
func patchBody(specs []string) (*requestBody, error) {
	doc := patch.New()
	for _, spec := range specs {
		fields := strings.SplitN(strings.TrimSpace(spec), " ", 3)
		if len(fields) < 2 || !strings.HasPrefix(fields[1], "/") {
			return nil, invalidPatch(spec)
		}
		op, path := fields[0], fields[1]
		arg, hasArg := "", len(fields) == 3
		if hasArg {
			arg = strings.TrimSpace(fields[2])
		}

		switch op {
		case patch.OpRemove:
			if hasArg {
				return nil, invalidPatch(spec)
			}
			doc.Remove(path)
		case patch.OpAdd, patch.OpReplace, patch.OpTest:
			if !hasArg {
				return nil, invalidPatch(spec)
			}
			value := patchValue(arg)
			switch op {
			case patch.OpAdd:
				doc.Add(path, value)
			case patch.OpReplace:
				doc.Replace(path, value)
			default:
				doc.Test(path, value)
			}
		case patch.OpMove, patch.OpCopy:
			if !hasArg || !strings.HasPrefix(arg, "/") {
				return nil, invalidPatch(spec)
			}
			if op == patch.OpMove {
				doc.Move(arg, path)
			} else {
				doc.Copy(arg, path)
			}
		default:
			return nil, invalidPatch(spec)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}
	return &requestBody{contentType: contentTypeJSONPatch, data: data}, nil
}

func patchValue(arg string) any {
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return arg
	}
	return v
}

func invalidPatch(spec string) error {
	return shared.NewUsageError(fmt.Sprintf(
		`invalid patch %q (want "add|replace|test /path value", "remove /path" or "move|copy /path /from")`, spec), nil)
}
