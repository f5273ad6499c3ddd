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

// Package request implements `tingle request`, which sends one
// authenticated request through the configured client and prints the
// response.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/tingle/internal/cli/format"
	"github.com/tombee/tingle/internal/commands/completion"
	"github.com/tombee/tingle/internal/commands/shared"
	"github.com/tombee/tingle/internal/jq"
	"github.com/tombee/tingle/pkg/apiclient"
	"github.com/tombee/tingle/pkg/httpclient"
)

type options struct {
	data    string
	headers []string
	form    []string
	patches []string
	jq      string
	raw     bool
	include bool
}

// Result is the --json output of request.
type Result struct {
	Status  int             `json:"status"`
	Headers http.Header     `json:"headers"`
	Body    json.RawMessage `json:"body,omitempty"`
	Text    string          `json:"text,omitempty"`
	Results []any           `json:"results,omitempty"`
}

// NewCommand creates the request command.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "request [METHOD] URL",
		Short: "Send an authenticated request",
		Long: `Send a request signed by the configured auth provider and print the
response body. Relative URLs are resolved against http.base_url.

METHOD defaults to GET, or POST when a body is given (PATCH with --patch).
A non-2xx response exits with code 4; an RFC 7807 problem body is shown
as the error.`,
		Example: `  tingle request /api/v1/items
  tingle request POST /api/v1/items -d '{"name":"widget"}'
  tingle request POST /api/v1/upload -F kind=report -F file=@report.pdf
  tingle request /api/v1/items/42 --patch 'replace /name "gadget"' --patch 'remove /tags/0'
  tingle request /api/v1/items --jq '.items[].id' --raw`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completion.CompleteRequestArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.data, "data", "d", "", "Request body (@file reads a file, @- reads stdin)")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, `Request header "Name: value" (repeatable)`)
	f.StringArrayVarP(&opts.form, "form", "F", nil, "Multipart field name=value or name=@file (repeatable)")
	f.StringArrayVar(&opts.patches, "patch", nil, `JSON Patch operation "op path [value|from]" (repeatable)`)
	f.StringVar(&opts.jq, "jq", "", "Filter the JSON response with a jq expression")
	f.BoolVar(&opts.raw, "raw", false, "Print string jq results without quotes")
	f.BoolVarP(&opts.include, "include", "i", false, "Print the status line and response headers")
	cmd.MarkFlagsMutuallyExclusive("data", "form", "patch")
	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options) (err error) {
	var filter *jq.Filter
	if opts.jq != "" {
		if filter, err = jq.Compile(opts.jq); err != nil {
			return shared.NewUsageError("invalid --jq", err)
		}
	}

	rt, err := shared.Start(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(cmd.Context()); err == nil {
			err = closeErr
		}
	}()

	method, target := splitArgs(args, opts)
	u, err := resolveURL(rt.Config.HTTP.BaseURL, target)
	if err != nil {
		return err
	}

	body, err := buildBody(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}
	header, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), method, u.String(), nil)
	if err != nil {
		return shared.NewUsageError("invalid request", err)
	}
	if body != nil {
		body.apply(req)
	}
	for name, values := range header {
		req.Header[name] = values
	}

	client, closer, err := rt.Config.BuildClient(cmd.Context(), rt.Logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	resp, respBody, err := client.Do(cmd.Context(), req)
	if err != nil {
		return err
	}

	var results []any
	if filter != nil && len(respBody) > 0 && successful(resp) {
		if results, err = filter.Apply(cmd.Context(), respBody); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if !successful(resp) {
		if !shared.GetJSON() {
			if err := printResponse(out, resp, respBody, opts); err != nil {
				return err
			}
		}
		return responseError(req, resp, respBody)
	}

	if shared.GetJSON() {
		result := Result{Status: resp.StatusCode, Headers: resp.Header, Results: results}
		if json.Valid(respBody) {
			result.Body = respBody
		} else {
			result.Text = string(respBody)
		}
		return shared.EmitJSON(out, struct {
			shared.JSONResponse
			Result
		}{shared.NewJSONResponse("request"), result})
	}
	if filter != nil {
		if opts.include {
			printHead(out, resp)
		}
		return jq.Write(out, results, opts.raw)
	}
	return printResponse(out, resp, respBody, opts)
}

func splitArgs(args []string, opts *options) (method, target string) {
	if len(args) == 2 {
		return strings.ToUpper(args[0]), args[1]
	}
	switch {
	case len(opts.patches) > 0:
		return http.MethodPatch, args[0]
	case opts.data != "" || len(opts.form) > 0:
		return http.MethodPost, args[0]
	default:
		return http.MethodGet, args[0]
	}
}

// resolveURL returns target when absolute, otherwise target resolved
// against base.
func resolveURL(base, target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, shared.NewUsageError(fmt.Sprintf("invalid URL %q", target), err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	if base == "" {
		return nil, shared.NewUsageError(
			fmt.Sprintf("relative URL %q needs http.base_url in the config file or TINGLE_BASE_URL", target), nil)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, shared.NewUsageError(fmt.Sprintf("invalid base URL %q", base), err)
	}
	return baseURL.ResolveReference(ref), nil
}

func parseHeaders(raw []string) (http.Header, error) {
	header := http.Header{}
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, shared.NewUsageError(fmt.Sprintf(`invalid header %q (want "Name: value")`, h), nil)
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header, nil
}

func successful(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// responseError reports a non-2xx response, carrying the problem document
// when the body is one.
func responseError(req *http.Request, resp *http.Response, body []byte) error {
	msg := fmt.Sprintf("%s %s: %s", req.Method, httpclient.SanitizeURL(req.URL), resp.Status)

	var problem apiclient.Problem
	if err := json.Unmarshal(body, &problem); err == nil && (problem.Code() != "" || problem.Description() != "") {
		return shared.NewHTTPError(msg, &problem)
	}
	return shared.NewHTTPError(msg, nil)
}

func printResponse(w io.Writer, resp *http.Response, body []byte, opts *options) error {
	if opts.include {
		printHead(w, resp)
	}
	if len(body) == 0 {
		return nil
	}

	rendered, err := format.Body(body, resp.Header.Get("Content-Type"), isTTY(w))
	if err != nil {
		// Mislabelled JSON is printed as is.
		rendered = string(body)
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func printHead(w io.Writer, resp *http.Response) {
	fmt.Fprintf(w, "%s %s\n", resp.Proto, resp.Status)
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
	fmt.Fprintln(w)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && format.IsTTY(f)
}
