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
	"errors"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsTokenClient requests tokens through golang.org/x/oauth2.
// Unlike FormTokenClient it lets the library negotiate the client
// authentication style (HTTP Basic or form parameters).
type ClientCredentialsTokenClient struct {
	httpClient *http.Client
	now        func() time.Time
}

// NewClientCredentialsTokenClient creates a token client backed by
// clientcredentials.Config. A nil httpClient uses the library default.
func NewClientCredentialsTokenClient(httpClient *http.Client) *ClientCredentialsTokenClient {
	return &ClientCredentialsTokenClient{
		httpClient: httpClient,
		now:        time.Now,
	}
}

// RequestToken implements TokenClient.
func (c *ClientCredentialsTokenClient) RequestToken(ctx context.Context, creds OAuthCredentials) (*TokenResponse, error) {
	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.Endpoint,
		Scopes:       creds.Scopes,
	}
	if creds.Resource != "" {
		cfg.EndpointParams = url.Values{"resource": {creds.Resource}}
	}

	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	token, err := cfg.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			errorType, retryable := classifyStatus(retrieveErr.Response.StatusCode, retrieveErr.ErrorCode)
			return nil, &TokenRequestError{
				Type:       errorType,
				StatusCode: retrieveErr.Response.StatusCode,
				ErrorCode:  retrieveErr.ErrorCode,
				Message:    "token endpoint rejected the request",
				Retryable:  retryable,
				Cause:      err,
			}
		}
		return nil, classifyTransportError(err)
	}

	if token.AccessToken == "" {
		return nil, &TokenRequestError{
			Type:      ErrorTypeInvalidResponse,
			Message:   "token response has no access_token",
			Retryable: true,
		}
	}

	var expiresIn int64
	if !token.Expiry.IsZero() {
		expiresIn = int64(token.Expiry.Sub(c.now()).Round(time.Second) / time.Second)
	}

	return &TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   expiresIn,
	}, nil
}
