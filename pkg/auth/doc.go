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

// Package auth provides request authentication for the tingle API client.
//
// Exactly one Provider is active per client. Each provider mutates the
// headers of an outgoing *http.Request before it reaches the transport:
//
//   - SharedKeyProvider signs the request with HMAC-SHA256 over a canonical
//     string and sets "Authorization: SharedKey <signature>".
//   - OAuthProvider acquires an access token with the OAuth 2.0 client
//     credentials grant, caches it in a TokenCache and sets
//     "Authorization: Bearer <token>".
//   - SigV4Provider signs the request with AWS Signature Version 4.
//   - EmptyProvider leaves the request untouched.
//
// # Shared-key signing
//
// The string to sign is the newline-joined sequence
//
//	METHOD
//	CONTENT-LENGTH
//	CONTENT-TYPE
//	<date-header-name>:<date-header-value>
//	PATH
//
// The date header (x-ms-date by default) is generated in RFC 1123 form when
// the request does not carry one.
//
// # Token acquisition
//
// On a cache miss the OAuth provider calls its TokenClient up to
// RetryPolicy.MaxAttempts times, sleeping with exponential backoff and
// jitter between attempts. Concurrent callers share one acquisition. When
// every attempt fails the provider either sends the request with an empty
// credential (the default, letting the server answer 401) or, with
// WithFailOnExhausted, returns ErrTokenAcquisitionExhausted.
package auth
