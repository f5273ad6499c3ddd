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

package sign

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/tingle/internal/commands/shared"
	tingleerrors "github.com/tombee/tingle/pkg/errors"
)

const (
	testKey  = "TiR0p2ZwnUuBGBEDU5LADWBXpxXy3Y9Aq4Fb1nD+6CM="
	testDate = "Tue, 26 Dec 2017 23:09:28 GMT"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(shared.ResetFlagsForTest)

	root := &cobra.Command{Use: "tingle", SilenceUsage: true, SilenceErrors: true}
	flags := shared.RegisterFlagPointers()
	root.PersistentFlags().BoolVar(flags.JSON, "json", false, "")
	root.PersistentFlags().StringVar(flags.Config, "config", "", "")
	root.AddCommand(NewCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"sign"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSign_KnownVectors(t *testing.T) {
	out, err := execute(t, "", "--key", testKey, "--path", "/api/v1.1/iprs", "--date", testDate)
	require.NoError(t, err)
	assert.Equal(t,
		"Authorization: SharedKey v9LNWEDKJ65oSHnPqDW8akUCYz97Kcu+UGie0qZbO4k=\n"+
			"x-ms-date: "+testDate+"\n", out)

	out, err = execute(t, "", "--key", testKey, "--method", "post", "--path", "/api/v1.1/iprs",
		"--date", testDate, "--content-type", "application/json", "--body", "{}")
	require.NoError(t, err)
	assert.Contains(t, out, "SharedKey wvvxU8t2ocF0lY2GOmkQSepiUGhjuQnGqMCzfTxhfX0=")
}

func TestSign_KeyFromStdin(t *testing.T) {
	out, err := execute(t, testKey+"\n", "--key", "-", "--path", "/api/v1.1/iprs", "--date", testDate)
	require.NoError(t, err)
	assert.Contains(t, out, "v9LNWEDKJ65oSHnPqDW8akUCYz97Kcu+UGie0qZbO4k=")
}

func TestSign_BodyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	out, err := execute(t, "", "--key", testKey, "--method", "POST", "--path", "/api/v1.1/iprs",
		"--date", testDate, "--content-type", "application/json", "--body-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wvvxU8t2ocF0lY2GOmkQSepiUGhjuQnGqMCzfTxhfX0=")
}

func TestSign_JSONWithStringToSign(t *testing.T) {
	out, err := execute(t, "", "--json", "--key", testKey, "--path", "/api/v1.1/iprs",
		"--date", testDate, "--string-to-sign", "--scheme", "HMAC", "--date-header", "Date")
	require.NoError(t, err)

	var got Result
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	assert.True(t, strings.HasPrefix(got.Authorization, "HMAC "))
	assert.Equal(t, "Date", got.DateHeader)
	assert.Equal(t, "GET\n0\n\nDate:"+testDate+"\n/api/v1.1/iprs", got.StringToSign)
}

func TestSign_KeyFromConfig(t *testing.T) {
	t.Setenv("TINGLE_SHARED_KEY", "")
	os.Unsetenv("TINGLE_SHARED_KEY")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"auth:\n  mode: shared_key\n  shared_key:\n    key: "+testKey+"\n    scheme: Custom\n"), 0o600))

	out, err := execute(t, "", "--config", path, "--path", "/api/v1.1/iprs", "--date", testDate)
	require.NoError(t, err)
	assert.Contains(t, out, "Authorization: Custom v9LNWEDKJ65oSHnPqDW8akUCYz97Kcu+UGie0qZbO4k=")
}

func TestSign_Errors(t *testing.T) {
	_, err := execute(t, "", "--key", "not base64!", "--path", "/x")
	var credErr *tingleerrors.CredentialError
	assert.ErrorAs(t, err, &credErr)
	assert.Equal(t, shared.ExitAuthError, shared.ExitCode(err))

	_, err = execute(t, "", "--key", testKey)
	assert.ErrorContains(t, err, "path")

	_, err = execute(t, "", "--key", testKey, "--path", "/café")
	assert.Error(t, err)
}
