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
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthCredentials_Validate(t *testing.T) {
	tests := []struct {
		name    string
		creds   OAuthCredentials
		wantErr string
	}{
		{
			name:  "valid",
			creds: OAuthCredentials{Endpoint: "https://login.example.com/token", ClientID: "id", ClientSecret: "secret"},
		},
		{
			name:    "missing endpoint",
			creds:   OAuthCredentials{ClientID: "id", ClientSecret: "secret"},
			wantErr: "token endpoint is required",
		},
		{
			name:    "relative endpoint",
			creds:   OAuthCredentials{Endpoint: "/token", ClientID: "id", ClientSecret: "secret"},
			wantErr: "absolute",
		},
		{
			name:    "missing client id",
			creds:   OAuthCredentials{Endpoint: "https://login.example.com/token", ClientSecret: "secret"},
			wantErr: "client_id is required",
		},
		{
			name:    "missing client secret",
			creds:   OAuthCredentials{Endpoint: "https://login.example.com/token", ClientID: "id"},
			wantErr: "client_secret is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOAuthCredentials_FormBody(t *testing.T) {
	t.Run("field order without resource", func(t *testing.T) {
		creds := OAuthCredentials{ClientID: "id", ClientSecret: "secret"}
		assert.Equal(t, "grant_type=client_credentials&client_id=id&client_secret=secret", creds.FormBody())
	})

	t.Run("reserved characters are escaped", func(t *testing.T) {
		creds := OAuthCredentials{
			ClientID:     "app id",
			ClientSecret: "a&b=c+d",
			Resource:     "https://api.example.com/",
			Scopes:       []string{"read", "write"},
		}
		body := creds.FormBody()
		assert.Equal(t,
			"grant_type=client_credentials&client_id=app+id&client_secret=a%26b%3Dc%2Bd"+
				"&resource=https%3A%2F%2Fapi.example.com%2F&scope=read+write",
			body)

		values, err := url.ParseQuery(body)
		require.NoError(t, err)
		assert.Equal(t, "a&b=c+d", values.Get("client_secret"))
	})
}

func newTokenServer(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	received := &url.Values{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		*received, _ = url.ParseQuery(string(raw))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, received
}

func TestFormTokenClient_Success(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantExpiresIn int64
		wantExpiresOn string
	}{
		{
			name:          "expires_in as string",
			body:          `{"access_token":"tok","expires_in":"3599","expires_on":"1700000000"}`,
			wantExpiresIn: 3599,
			wantExpiresOn: "1700000000",
		},
		{
			name:          "expires_in as number",
			body:          `{"access_token":"tok","expires_in":3599,"token_type":"Bearer"}`,
			wantExpiresIn: 3599,
			wantExpiresOn: "3600",
		},
		{
			name:          "expires_in missing",
			body:          `{"access_token":"tok"}`,
			wantExpiresIn: 0,
			wantExpiresOn: "3600",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, received := newTokenServer(t, http.StatusOK, tt.body)

			client := NewFormTokenClient(server.Client())
			resp, err := client.RequestToken(context.Background(), OAuthCredentials{
				Endpoint:     server.URL,
				ClientID:     "id",
				ClientSecret: "s&cret",
				Resource:     "api://res",
			})
			require.NoError(t, err)

			assert.Equal(t, "tok", resp.AccessToken)
			assert.Equal(t, tt.wantExpiresIn, resp.ExpiresIn)
			assert.Equal(t, tt.wantExpiresOn, resp.ExpiresOn)

			assert.Equal(t, "client_credentials", received.Get("grant_type"))
			assert.Equal(t, "id", received.Get("client_id"))
			assert.Equal(t, "s&cret", received.Get("client_secret"))
			assert.Equal(t, "api://res", received.Get("resource"))
		})
	}
}

func TestFormTokenClient_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantType   ErrorType
		wantRetry  bool
		wantCode   string
		wantStatus int
	}{
		{
			name:       "invalid client",
			status:     http.StatusUnauthorized,
			body:       `{"error":"invalid_client","error_description":"bad secret"}`,
			wantType:   ErrorTypeAuth,
			wantRetry:  false,
			wantCode:   "invalid_client",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "server error without body",
			status:     http.StatusBadGateway,
			body:       ``,
			wantType:   ErrorTypeServer,
			wantRetry:  true,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{}`,
			wantType:   ErrorTypeRateLimit,
			wantRetry:  true,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "malformed body",
			status:     http.StatusOK,
			body:       `not json`,
			wantType:   ErrorTypeInvalidResponse,
			wantRetry:  true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty token",
			status:     http.StatusOK,
			body:       `{"access_token":"","expires_in":"3600"}`,
			wantType:   ErrorTypeInvalidResponse,
			wantRetry:  true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "non-numeric expires_in",
			status:     http.StatusOK,
			body:       `{"access_token":"tok","expires_in":"soon"}`,
			wantType:   ErrorTypeInvalidResponse,
			wantRetry:  true,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTokenServer(t, tt.status, tt.body)

			client := NewFormTokenClient(server.Client())
			resp, err := client.RequestToken(context.Background(), OAuthCredentials{
				Endpoint:     server.URL,
				ClientID:     "id",
				ClientSecret: "super-secret-value",
			})
			assert.Nil(t, resp)

			var tokenErr *TokenRequestError
			require.ErrorAs(t, err, &tokenErr)
			assert.Equal(t, tt.wantType, tokenErr.Type)
			assert.Equal(t, tt.wantRetry, tokenErr.IsRetryable())
			assert.Equal(t, tt.wantCode, tokenErr.ErrorCode)
			assert.Equal(t, tt.wantStatus, tokenErr.StatusCode)
			assert.NotContains(t, err.Error(), "super-secret-value")
		})
	}
}

func TestFormTokenClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewFormTokenClient(&http.Client{Timeout: time.Second})
	_, err := client.RequestToken(context.Background(), OAuthCredentials{
		Endpoint:     endpoint,
		ClientID:     "id",
		ClientSecret: "secret",
	})

	var tokenErr *TokenRequestError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, ErrorTypeConnection, tokenErr.Type)
	assert.True(t, tokenErr.Retryable)
}

func TestFormTokenClient_Cancelled(t *testing.T) {
	server, _ := newTokenServer(t, http.StatusOK, `{"access_token":"tok"}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFormTokenClient(server.Client()).RequestToken(ctx, OAuthCredentials{
		Endpoint:     server.URL,
		ClientID:     "id",
		ClientSecret: "secret",
	})

	var tokenErr *TokenRequestError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, ErrorTypeCancelled, tokenErr.Type)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientCredentialsTokenClient(t *testing.T) {
	var received url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"cc-token","token_type":"Bearer","expires_in":120}`))
	}))
	defer server.Close()

	client := NewClientCredentialsTokenClient(server.Client())
	resp, err := client.RequestToken(context.Background(), OAuthCredentials{
		Endpoint:     server.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		Resource:     "api://res",
		Scopes:       []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, "cc-token", resp.AccessToken)
	assert.InDelta(t, 120, resp.ExpiresIn, 2)
	assert.Equal(t, "client_credentials", received.Get("grant_type"))
	assert.Equal(t, "api://res", received.Get("resource"))
	assert.Equal(t, "a b", received.Get("scope"))
}

func TestClientCredentialsTokenClient_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	_, err := NewClientCredentialsTokenClient(server.Client()).RequestToken(context.Background(), OAuthCredentials{
		Endpoint:     server.URL,
		ClientID:     "id",
		ClientSecret: "secret",
	})

	var tokenErr *TokenRequestError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, ErrorTypeAuth, tokenErr.Type)
	assert.Equal(t, http.StatusBadRequest, tokenErr.StatusCode)
	assert.Equal(t, "invalid_client", tokenErr.ErrorCode)
}
