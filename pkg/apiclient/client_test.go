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

package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tombee/tingle/pkg/auth"
)

type order struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

// recorder is middleware that appends its name to a shared log.
type recorder struct {
	name string
	mu   *sync.Mutex
	log  *[]string
}

func (r recorder) ProcessRequest(req *http.Request) (*http.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, "request:"+r.name)
	req.Header.Add("X-Chain", r.name)
	return req, nil
}

func (r recorder) ProcessResponse(_ *http.Request, _ *http.Response, _ []byte, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.log = append(*r.log, "response:"+r.name)
}

func newServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_MiddlewareOrder(t *testing.T) {
	var seenChain []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenChain = r.Header.Values("X-Chain")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var mu sync.Mutex
	var calls []string
	provider := auth.ProviderFunc(func(req *http.Request) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, "auth")
		return nil
	})

	client, err := New(
		WithHTTPClient(server.Client()),
		WithAuthProvider(provider),
		WithMiddleware(recorder{"a", &mu, &calls}, recorder{"b", &mu, &calls}),
	)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, _, err = client.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"auth", "request:a", "request:b", "response:b", "response:a"}, calls)
	assert.Equal(t, []string{"a", "b"}, seenChain)
}

func TestSend_DecodesResource(t *testing.T) {
	server := newServer(t, http.StatusOK, `{"id":"ord_1","amount":1200}`)
	client, err := New(WithHTTPClient(server.Client()))
	require.NoError(t, err)

	req, err := NewJSONRequest(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := Send[order](context.Background(), client, req)
	require.NoError(t, err)

	assert.True(t, resp.Successful())
	assert.False(t, resp.IsUnauthorized())
	require.NotNil(t, resp.Resource)
	assert.Equal(t, order{ID: "ord_1", Amount: 1200}, *resp.Resource)
	assert.Nil(t, resp.Problem)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestSend_DecodesProblem(t *testing.T) {
	server := newServer(t, http.StatusUnauthorized,
		`{"title":"invalid_token","detail":"token expired","errors":{"SessionId":["The SessionId is required"]}}`)
	client, err := New(WithHTTPClient(server.Client()))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := Send[order](context.Background(), client, req)
	require.NoError(t, err)

	assert.False(t, resp.Successful())
	assert.True(t, resp.IsUnauthorized())
	assert.Nil(t, resp.Resource)
	require.NotNil(t, resp.Problem)
	assert.Equal(t, "invalid_token", resp.Problem.Code())
	assert.Equal(t, "token expired", resp.Problem.Description())
	assert.Equal(t, []string{"The SessionId is required"}, resp.Problem.Errors["SessionId"])
}

func TestSend_EmptyBody(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotFound} {
		server := newServer(t, status, "")
		client, err := New(WithHTTPClient(server.Client()))
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodDelete, server.URL, nil)
		require.NoError(t, err)

		resp, err := Send[order](context.Background(), client, req)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Nil(t, resp.Resource)
		assert.Nil(t, resp.Problem)
	}
}

func TestSend_DecodeFailure(t *testing.T) {
	server := newServer(t, http.StatusOK, `<html>oops</html>`)
	client, err := New(WithHTTPClient(server.Client()))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := Send[order](context.Background(), client, req)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, http.StatusOK, decodeErr.StatusCode)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Resource)
}

func TestSend_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	var mu sync.Mutex
	var calls []string
	client, err := New(WithMiddleware(recorder{"a", &mu, &calls}))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := Send[order](context.Background(), client, req)
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, []string{"request:a", "response:a"}, calls, "middleware still sees the failure")
}

func TestClient_AuthFailureAbortsRequest(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits++ }))
	defer server.Close()

	client, err := New(
		WithHTTPClient(server.Client()),
		WithAuthProvider(auth.ProviderFunc(func(*http.Request) error { return auth.ErrMalformedRequest })),
	)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, _, err = client.Do(context.Background(), req)
	assert.ErrorIs(t, err, auth.ErrMalformedRequest)
	assert.Zero(t, hits)
}

func TestClient_DoesNotMutateCallerRequest(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	var calls int
	client, err := New(
		WithHTTPClient(server.Client()),
		WithAuthProvider(auth.ProviderFunc(func(req *http.Request) error {
			calls++
			if req.Header.Get("Authorization") != "" {
				return errors.New("request already carries a credential")
			}
			req.Header.Set("Authorization", "Bearer token-"+string(rune('0'+calls)))
			return nil
		})),
		WithMiddleware(NewAppDetailsMiddleware("com.example.wallet", "2.1.0", "210")),
	)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")

	for range 2 {
		_, _, err = client.Do(context.Background(), req)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"Bearer token-1", "Bearer token-2"}, seen)
	assert.Equal(t, http.Header{"Accept": []string{"application/json"}}, req.Header)
}

type denyLimiter struct{}

func (denyLimiter) Wait(context.Context) error { return errors.New("rate exceeded") }

func TestClient_RateLimiter(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits++ }))
	defer server.Close()

	denied, err := New(WithHTTPClient(server.Client()), WithRateLimiter(denyLimiter{}))
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, _, err = denied.Do(context.Background(), req)
	assert.ErrorContains(t, err, "rate exceeded")
	assert.Zero(t, hits)

	allowed, err := New(WithHTTPClient(server.Client()), WithRateLimiter(NewRateLimiter(100, 1)))
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, _, err = allowed.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestClient_InvalidOptions(t *testing.T) {
	_, err := New(WithHTTPClient(nil))
	assert.Error(t, err)

	_, err = New(WithMiddleware(nil))
	assert.Error(t, err)
}

func TestAppDetailsMiddleware(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client, err := New(
		WithHTTPClient(server.Client()),
		WithMiddleware(NewAppDetailsMiddleware("com.example.wallet", "2.1.0", "210")),
	)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, _, err = client.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "com.example.wallet", got.Get("AppPackageId"))
	assert.Equal(t, "2.1.0", got.Get("AppVersionName"))
	assert.Equal(t, "210", got.Get("AppVersionCode"))
}

func TestNewJSONRequest(t *testing.T) {
	req, err := NewJSONRequest(context.Background(), http.MethodPost, "https://api.example.com/orders", order{ID: "x", Amount: 5})
	require.NoError(t, err)

	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, int64(len(`{"id":"x","amount":5}`)), req.ContentLength)

	var decoded order
	require.NoError(t, json.NewDecoder(req.Body).Decode(&decoded))
	assert.Equal(t, order{ID: "x", Amount: 5}, decoded)

	_, err = NewJSONRequest(context.Background(), http.MethodPost, "https://api.example.com", make(chan int))
	assert.Error(t, err)
}
