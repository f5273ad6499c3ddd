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

/*
Package apiclient sends HTTP requests through an authentication provider and
a chain of middleware, and decodes JSON responses into typed resources or
RFC 7807 problem documents.

# Pipeline

The auth provider runs first, then each Middleware in registration order.
Responses pass through the middleware in reverse order before decoding:

	client, err := apiclient.New(
	    apiclient.WithAuthProvider(provider),
	    apiclient.WithMiddleware(apiclient.NewAppDetailsMiddleware("com.example.app", "1.4.0", "140")),
	)
	req, err := apiclient.NewJSONRequest(ctx, http.MethodPost, url, payload)
	resp, err := apiclient.Send[Order](ctx, client, req)
	if resp.Successful() {
	    fmt.Println(resp.Resource.ID)
	}

A transport failure returns an error and no response. Any HTTP status,
including 4xx and 5xx, yields a ResourceResponse.
*/
package apiclient
