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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxTokenResponseSize bounds the token endpoint response body.
const maxTokenResponseSize = 1 << 20

// OAuthCredentials configures the client credentials grant.
type OAuthCredentials struct {
	// Endpoint is the token endpoint URL (required)
	Endpoint string

	// ClientID is the OAuth client identifier (required)
	ClientID string

	// ClientSecret is the OAuth client secret (required)
	ClientSecret string

	// Resource is the resource to request a token for (optional)
	Resource string

	// Scopes are sent space-separated as "scope" when non-empty (optional)
	Scopes []string
}

// Validate checks the credentials are usable.
func (c OAuthCredentials) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("token endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("token endpoint must be an absolute http:// or https:// URL")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	return nil
}

// FormBody encodes the token request body. Every value is percent-encoded.
// Field order: grant_type, client_id, client_secret, resource, scope.
func (c OAuthCredentials) FormBody() string {
	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	write("grant_type", "client_credentials")
	write("client_id", c.ClientID)
	write("client_secret", c.ClientSecret)
	if c.Resource != "" {
		write("resource", c.Resource)
	}
	if len(c.Scopes) > 0 {
		write("scope", strings.Join(c.Scopes, " "))
	}
	return b.String()
}

// TokenResponse is a successfully parsed token endpoint response.
type TokenResponse struct {
	// AccessToken is the issued token, never empty
	AccessToken string

	// TokenType is the token_type field, informational
	TokenType string

	// ExpiresIn is the token lifetime in seconds
	ExpiresIn int64

	// ExpiresOn is the expires_on field, informational only
	ExpiresOn string
}

// TokenClient requests access tokens from a token endpoint.
// Implementations return *TokenRequestError for every failure and never panic.
type TokenClient interface {
	RequestToken(ctx context.Context, creds OAuthCredentials) (*TokenResponse, error)
}

// FormTokenClient posts a form-encoded client credentials request.
type FormTokenClient struct {
	httpClient *http.Client
}

// NewFormTokenClient creates a token client. A nil httpClient uses a client
// with a 30 second timeout.
func NewFormTokenClient(httpClient *http.Client) *FormTokenClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &FormTokenClient{httpClient: httpClient}
}

// tokenPayload is the JSON shape of the token endpoint response.
type tokenPayload struct {
	AccessToken      string        `json:"access_token"`
	TokenType        string        `json:"token_type"`
	ExpiresIn        numericString `json:"expires_in"`
	ExpiresOn        numericString `json:"expires_on"`
	Error            string        `json:"error"`
	ErrorDescription string        `json:"error_description"`
}

// numericString accepts a JSON string or number and keeps its text.
type numericString string

// UnmarshalJSON implements json.Unmarshaler.
func (n *numericString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numericString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = numericString(num.String())
	return nil
}

// RequestToken implements TokenClient.
func (c *FormTokenClient) RequestToken(ctx context.Context, creds OAuthCredentials) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.Endpoint, strings.NewReader(creds.FormBody()))
	if err != nil {
		return nil, &TokenRequestError{
			Type:      ErrorTypeClient,
			Message:   "failed to create token request",
			Retryable: false,
			Cause:     err,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, &TokenRequestError{
			Type:       ErrorTypeConnection,
			StatusCode: resp.StatusCode,
			Message:    "failed to read token response body",
			Retryable:  true,
			Cause:      err,
		}
	}

	return parseTokenResponse(resp.StatusCode, body)
}

// parseTokenResponse converts a token endpoint response into a TokenResponse.
func parseTokenResponse(statusCode int, body []byte) (*TokenResponse, error) {
	var payload tokenPayload
	decodeErr := json.Unmarshal(body, &payload)

	if statusCode < 200 || statusCode > 299 {
		errorType, retryable := classifyStatus(statusCode, payload.Error)
		message := fmt.Sprintf("token endpoint returned status %d", statusCode)
		if payload.Error != "" {
			message = fmt.Sprintf("OAuth2 error %s", payload.Error)
			if payload.ErrorDescription != "" {
				message = fmt.Sprintf("%s: %s", message, payload.ErrorDescription)
			}
		}
		return nil, &TokenRequestError{
			Type:       errorType,
			StatusCode: statusCode,
			ErrorCode:  payload.Error,
			Message:    message,
			Retryable:  retryable,
		}
	}

	if decodeErr != nil {
		return nil, &TokenRequestError{
			Type:       ErrorTypeInvalidResponse,
			StatusCode: statusCode,
			Message:    "malformed token response body",
			Retryable:  true,
			Cause:      decodeErr,
		}
	}
	if payload.AccessToken == "" {
		return nil, &TokenRequestError{
			Type:       ErrorTypeInvalidResponse,
			StatusCode: statusCode,
			Message:    "token response has no access_token",
			Retryable:  true,
		}
	}

	expiresIn := string(payload.ExpiresIn)
	if expiresIn == "" {
		expiresIn = "0"
	}
	seconds, err := strconv.ParseInt(strings.TrimSpace(expiresIn), 10, 64)
	if err != nil {
		return nil, &TokenRequestError{
			Type:       ErrorTypeInvalidResponse,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("invalid expires_in %q", expiresIn),
			Retryable:  true,
			Cause:      err,
		}
	}

	expiresOn := string(payload.ExpiresOn)
	if expiresOn == "" {
		expiresOn = "3600"
	}

	return &TokenResponse{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresIn:   seconds,
		ExpiresOn:   expiresOn,
	}, nil
}

// classifyTransportError classifies http.Client errors.
func classifyTransportError(err error) *TokenRequestError {
	if errors.Is(err, context.Canceled) {
		return &TokenRequestError{
			Type:      ErrorTypeCancelled,
			Message:   "token request cancelled",
			Retryable: false,
			Cause:     err,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TokenRequestError{
			Type:      ErrorTypeTimeout,
			Message:   "token request timeout",
			Retryable: true,
			Cause:     err,
		}
	}

	return &TokenRequestError{
		Type:      ErrorTypeConnection,
		Message:   "token endpoint unreachable",
		Retryable: true,
		Cause:     err,
	}
}
