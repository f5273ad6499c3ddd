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

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultSharedKeyScheme is the Authorization scheme for shared-key signing.
	DefaultSharedKeyScheme = "SharedKey"

	// DefaultDateHeader is the header carrying the signing date.
	DefaultDateHeader = "x-ms-date"

	// DateFormat is the RFC 1123 layout used for generated date headers.
	// Day and month names are always English, independent of locale.
	DateFormat = http.TimeFormat
)

// CanonicalParts holds the request components covered by a shared-key signature.
type CanonicalParts struct {
	// Method is the HTTP method (e.g., "GET")
	Method string

	// ContentLength is the body length in bytes, 0 without a body
	ContentLength int64

	// ContentType is the Content-Type header value, empty when absent
	ContentType string

	// DateHeaderName is the name of the date header as it appears in the string to sign
	DateHeaderName string

	// DateHeaderValue is the value of the date header
	DateHeaderValue string

	// Path is the URL path without query string
	Path string
}

// BuildStringToSign builds the canonical string.
// Format: METHOD\nLENGTH\nTYPE\nDATE-NAME:DATE-VALUE\nPATH
// An empty content type keeps its line so field positions never shift.
func BuildStringToSign(p CanonicalParts) string {
	return strings.Join([]string{
		p.Method,
		strconv.FormatInt(p.ContentLength, 10),
		p.ContentType,
		p.DateHeaderName + ":" + p.DateHeaderValue,
		p.Path,
	}, "\n")
}

// Sign computes the base64-encoded HMAC-SHA256 of the canonical string for p.
func Sign(key []byte, p CanonicalParts) (string, error) {
	if len(key) == 0 {
		return "", &SigningError{Op: "sign", Err: ErrEmptyKey}
	}
	if p.ContentLength < 0 {
		return "", &SigningError{Op: "canonicalize", Err: fmt.Errorf("%w: negative content length %d", ErrMalformedRequest, p.ContentLength)}
	}

	stringToSign := BuildStringToSign(p)
	if i := nonASCIIIndex(stringToSign); i >= 0 {
		return "", &SigningError{Op: "canonicalize", Err: fmt.Errorf("%w (byte %d)", ErrNonASCII, i)}
	}

	return base64.StdEncoding.EncodeToString(HMACSHA256(key, []byte(stringToSign))), nil
}

// HMACSHA256 computes the HMAC-SHA256 of data with key.
func HMACSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// FormatDate formats t for the date header in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// nonASCIIIndex returns the index of the first byte above 0x7F, or -1.
func nonASCIIIndex(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return i
		}
	}
	return -1
}
