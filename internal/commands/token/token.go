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

// Package token implements `tingle token`, which acquires an OAuth access
// token with the configured client credentials.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/tombee/tingle/internal/commands/shared"
	"github.com/tombee/tingle/pkg/httpclient"
)

// ErrNotJWT is returned by --decode for opaque tokens.
var ErrNotJWT = errors.New("access token is not a JWT")

// Result is the --json output of token.
type Result struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	Claims      jwt.MapClaims `json:"claims,omitempty"`
}

// NewCommand creates the token command.
func NewCommand() *cobra.Command {
	var decode bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Acquire an OAuth access token",
		Long: `Acquire an access token with the client credentials in the config file
(auth.mode: oauth) and print it. A cached token is reused until it expires.

--decode prints the JWT claims instead. The signature is NOT verified; use
it to inspect audience, scopes and expiry only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, decode)
		},
	}

	cmd.Flags().BoolVar(&decode, "decode", false, "Print the token's JWT claims (unverified)")
	return cmd
}

func run(cmd *cobra.Command, decode bool) (err error) {
	rt, err := shared.Start(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(cmd.Context()); err == nil {
			err = closeErr
		}
	}()

	httpClient, err := httpclient.New(rt.Config.HTTPClientConfig(rt.Logger))
	if err != nil {
		return err
	}
	provider, closer, err := rt.Config.TokenProvider(httpClient, rt.Logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	tok, err := provider.TokenSource(cmd.Context()).Token()
	if err != nil {
		return err
	}

	result := Result{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		result.ExpiresAt = &expiry
	}
	if decode {
		if result.Claims, err = Claims(tok.AccessToken); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.EmitJSON(out, struct {
			shared.JSONResponse
			Result
		}{shared.NewJSONResponse("token"), result})
	}

	if decode {
		return shared.EmitJSON(out, result.Claims)
	}
	fmt.Fprintln(out, result.AccessToken)
	if result.ExpiresAt != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", shared.RenderLabel("expires:"), result.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// Claims parses token as a JWT without verifying its signature.
func Claims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}
	return claims, nil
}
