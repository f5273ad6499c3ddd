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

// Package sign implements `tingle sign`, which computes a shared-key
// Authorization header without sending a request.
package sign

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/tingle/internal/commands/completion"
	"github.com/tombee/tingle/internal/commands/shared"
	"github.com/tombee/tingle/internal/config"
	"github.com/tombee/tingle/pkg/auth"
	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

// maxKeyInput bounds a key read from stdin.
const maxKeyInput = 4096

type options struct {
	key          string
	method       string
	path         string
	date         string
	contentType  string
	body         string
	bodyFile     string
	dateHeader   string
	scheme       string
	stringToSign bool
}

// Result is the --json output of sign.
type Result struct {
	Authorization string `json:"authorization"`
	DateHeader    string `json:"date_header"`
	Date          string `json:"date"`
	StringToSign  string `json:"string_to_sign,omitempty"`
}

// NewCommand creates the sign command.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute a shared-key Authorization header",
		Long: `Compute the shared-key HMAC-SHA256 Authorization header for a request
without sending it.

The key is the base64-encoded shared secret. With --key - it is read from
stdin, or prompted for without echo when stdin is a terminal. Without
--key, auth.shared_key.key from the config file is used.`,
		Example: `  tingle sign --key - --method POST --path /api/v1.1/iprs --content-type application/json --body '{}'
  tingle sign --method GET --path /things --string-to-sign`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.key, "key", "", "Base64 shared key, or - to read it from stdin")
	f.StringVar(&opts.method, "method", "GET", "HTTP method")
	f.StringVar(&opts.path, "path", "", "Request path without query string")
	f.StringVar(&opts.date, "date", "", "Date header value (default: now, RFC 1123 GMT)")
	f.StringVar(&opts.contentType, "content-type", "", "Content-Type header value")
	f.StringVar(&opts.body, "body", "", "Request body")
	f.StringVar(&opts.bodyFile, "body-file", "", "Read the request body from a file")
	f.StringVar(&opts.dateHeader, "date-header", "", "Date header name (default: x-ms-date)")
	f.StringVar(&opts.scheme, "scheme", "", "Authorization scheme (default: SharedKey)")
	f.BoolVar(&opts.stringToSign, "string-to-sign", false, "Also print the canonical string")
	_ = cmd.MarkFlagRequired("path")
	_ = cmd.RegisterFlagCompletionFunc("method", completion.CompleteMethods)
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	key, sk, err := resolveKey(cmd, opts)
	if err != nil {
		return err
	}

	scheme := firstNonEmpty(opts.scheme, sk.Scheme, auth.DefaultSharedKeyScheme)
	dateHeader := firstNonEmpty(opts.dateHeader, sk.DateHeader, auth.DefaultDateHeader)
	date := opts.date
	if date == "" {
		date = auth.FormatDate(time.Now())
	}

	body := []byte(opts.body)
	if opts.bodyFile != "" {
		if body, err = os.ReadFile(opts.bodyFile); err != nil {
			return fmt.Errorf("failed to read body file: %w", err)
		}
	}

	parts := auth.CanonicalParts{
		Method:          strings.ToUpper(opts.method),
		ContentLength:   int64(len(body)),
		ContentType:     opts.contentType,
		DateHeaderName:  dateHeader,
		DateHeaderValue: date,
		Path:            opts.path,
	}
	signature, err := auth.Sign(key, parts)
	if err != nil {
		return err
	}

	result := Result{
		Authorization: scheme + " " + signature,
		DateHeader:    dateHeader,
		Date:          date,
	}
	if opts.stringToSign {
		result.StringToSign = auth.BuildStringToSign(parts)
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.EmitJSON(out, struct {
			shared.JSONResponse
			Result
		}{shared.NewJSONResponse("sign"), result})
	}

	fmt.Fprintf(out, "Authorization: %s\n", result.Authorization)
	fmt.Fprintf(out, "%s: %s\n", result.DateHeader, result.Date)
	if opts.stringToSign {
		fmt.Fprintf(out, "\n%s\n%s\n", shared.RenderLabel("# string to sign"), result.StringToSign)
	}
	return nil
}

// resolveKey returns the decoded key plus the config's shared key section
// for scheme and date header defaults.
func resolveKey(cmd *cobra.Command, opts *options) ([]byte, config.SharedKeyConfig, error) {
	var sk config.SharedKeyConfig
	encoded := opts.key

	switch encoded {
	case "-":
		read, err := readKey(cmd)
		if err != nil {
			return nil, sk, err
		}
		encoded = read
	case "":
		cfg, err := config.Load(shared.GetConfigPath())
		if err != nil {
			return nil, sk, err
		}
		sk = cfg.Auth.SharedKey
		encoded = sk.Key
		if encoded == "" {
			return nil, sk, &tingleerrors.ConfigError{Key: "auth.shared_key.key", Reason: "no shared key given"}
		}
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(key) == 0 {
		return nil, sk, &tingleerrors.CredentialError{
			Provider: config.AuthModeSharedKey,
			Reason:   "shared key is not valid base64",
			Hint:     "pass the key exactly as issued, e.g. --key - and paste it",
			Cause:    err,
		}
	}
	return key, sk, nil
}

// readKey reads the key without echo from a terminal, or from piped stdin.
func readKey(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Shared key: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return string(raw), nil
	}

	raw, err := io.ReadAll(io.LimitReader(in, maxKeyInput))
	if err != nil {
		return "", fmt.Errorf("failed to read key from stdin: %w", err)
	}
	line, _, _ := bytes.Cut(raw, []byte("\n"))
	return string(line), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
