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

// Package multipart builds multipart request bodies (RFC 2046, RFC 7578).
package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// MediaType is a multipart subtype.
type MediaType string

const (
	// Mixed bundles independent parts in a particular order.
	Mixed MediaType = "multipart/mixed"
	// Alternative holds alternative versions of the same information.
	Alternative MediaType = "multipart/alternative"
	// Digest defaults each part's Content-Type to message/rfc822.
	Digest MediaType = "multipart/digest"
	// Parallel holds parts whose order is not significant.
	Parallel MediaType = "multipart/parallel"
	// FormData carries named form fields and files.
	FormData MediaType = "multipart/form-data"
)

// ErrNoParts is returned by Build when no part was added.
var ErrNoParts = errors.New("multipart body must have at least one part")

type part struct {
	header textproto.MIMEHeader
	body   []byte
}

// Builder accumulates parts. Errors from Add* calls are deferred to Build.
type Builder struct {
	mediaType MediaType
	boundary  string
	parts     []part
	err       error
}

// NewBuilder returns a builder with a random UUID boundary.
func NewBuilder(mediaType MediaType) *Builder {
	return &Builder{
		mediaType: mediaType,
		boundary:  uuid.NewString(),
	}
}

// SetBoundary overrides the generated boundary.
func (b *Builder) SetBoundary(boundary string) *Builder {
	b.boundary = boundary
	return b
}

// AddPart appends a part with the given headers. Content-Length is
// computed by the receiver and must not be supplied.
func (b *Builder) AddPart(header textproto.MIMEHeader, body []byte) *Builder {
	if header.Get("Content-Length") != "" {
		b.fail(fmt.Errorf("unexpected header: Content-Length"))
		return b
	}
	h := textproto.MIMEHeader{}
	for k, v := range header {
		h[textproto.CanonicalMIMEHeaderKey(k)] = append([]string(nil), v...)
	}
	b.parts = append(b.parts, part{header: h, body: append([]byte(nil), body...)})
	return b
}

// AddFormField appends a form-data field.
func (b *Builder) AddFormField(name, value string) *Builder {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", formDisposition(name, ""))
	return b.AddPart(h, []byte(value))
}

// AddFormFile appends a form-data file. An empty contentType defaults to
// application/octet-stream.
func (b *Builder) AddFormFile(name, filename, contentType string, r io.Reader) *Builder {
	data, err := io.ReadAll(r)
	if err != nil {
		b.fail(fmt.Errorf("reading %s: %w", filename, err))
		return b
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", formDisposition(name, filename))
	h.Set("Content-Type", contentType)
	return b.AddPart(h, data)
}

// Body is an encoded multipart payload.
type Body struct {
	ContentType string
	Data        []byte
}

// Reader returns a reader over the encoded payload.
func (b *Body) Reader() io.Reader {
	return bytes.NewReader(b.Data)
}

// Apply sets req's body, length and Content-Type to the payload.
func (b *Body) Apply(req *http.Request) {
	req.Body = io.NopCloser(bytes.NewReader(b.Data))
	req.ContentLength = int64(len(b.Data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b.Data)), nil
	}
	req.Header.Set("Content-Type", b.ContentType)
}

// Build encodes the parts.
func (b *Builder) Build() (*Body, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.parts) == 0 {
		return nil, ErrNoParts
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(b.boundary); err != nil {
		return nil, fmt.Errorf("invalid boundary: %w", err)
	}
	for _, p := range b.parts {
		pw, err := w.CreatePart(p.header)
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write(p.body); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return &Body{
		ContentType: fmt.Sprintf("%s; boundary=%s", b.mediaType, b.boundary),
		Data:        buf.Bytes(),
	}, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

var quoteEscaper = strings.NewReplacer("\n", "%0A", "\r", "%0D", `"`, "%22")

// formDisposition builds a Content-Disposition value, percent-escaping
// newlines and quotes in the name and filename.
func formDisposition(name, filename string) string {
	d := `form-data; name="` + quoteEscaper.Replace(name) + `"`
	if filename != "" {
		d += `; filename="` + quoteEscaper.Replace(filename) + `"`
	}
	return d
}
