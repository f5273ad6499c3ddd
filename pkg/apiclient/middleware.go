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

import "net/http"

// Middleware observes or decorates requests and responses.
type Middleware interface {
	// ProcessRequest runs before the request is sent. It may modify req in
	// place or return a replacement; returning nil keeps req. An error
	// aborts the request.
	ProcessRequest(req *http.Request) (*http.Request, error)

	// ProcessResponse runs after the exchange with the final outgoing
	// request. On transport failure resp and body are nil and err is set.
	ProcessResponse(req *http.Request, resp *http.Response, body []byte, err error)
}

// RequestFunc adapts a request-only function to Middleware.
type RequestFunc func(req *http.Request) error

// ProcessRequest calls f.
func (f RequestFunc) ProcessRequest(req *http.Request) (*http.Request, error) {
	return req, f(req)
}

// ProcessResponse does nothing.
func (RequestFunc) ProcessResponse(*http.Request, *http.Response, []byte, error) {}

// Header names set by AppDetailsMiddleware.
const (
	HeaderAppPackageID   = "AppPackageId"
	HeaderAppVersionName = "AppVersionName"
	HeaderAppVersionCode = "AppVersionCode"
)

// AppDetailsMiddleware identifies the calling application on every request.
type AppDetailsMiddleware struct {
	packageID   string
	versionName string
	versionCode string
}

// NewAppDetailsMiddleware creates an AppDetailsMiddleware.
func NewAppDetailsMiddleware(packageID, versionName, versionCode string) *AppDetailsMiddleware {
	return &AppDetailsMiddleware{
		packageID:   packageID,
		versionName: versionName,
		versionCode: versionCode,
	}
}

// ProcessRequest sets the package id and version headers.
func (m *AppDetailsMiddleware) ProcessRequest(req *http.Request) (*http.Request, error) {
	req.Header.Set(HeaderAppPackageID, m.packageID)
	req.Header.Set(HeaderAppVersionName, m.versionName)
	req.Header.Set(HeaderAppVersionCode, m.versionCode)
	return req, nil
}

// ProcessResponse does nothing.
func (m *AppDetailsMiddleware) ProcessResponse(*http.Request, *http.Response, []byte, error) {}
