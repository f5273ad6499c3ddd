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

package secrets

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func requireCategory(t *testing.T, err error, want Category) *ResolutionError {
	t.Helper()
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, want, resErr.Category)
	return resErr
}

func TestRegistry_Resolve(t *testing.T) {
	keyring.MockInit()
	t.Setenv("TINGLE_TEST_SECRET", "from-env")
	require.NoError(t, keyring.Set(KeychainService, "shared-key", "from-keychain"))

	dir := t.TempDir()
	path := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	r := Default()
	tests := []struct {
		value string
		want  string
	}{
		{value: "env:TINGLE_TEST_SECRET", want: "from-env"},
		{value: "file:" + path, want: "from-file"},
		{value: "keychain:shared-key", want: "from-keychain"},
		{value: "plain-value", want: "plain-value"},
		{value: "TiR0p2ZwnUuBGBEDU5LADWBXpxXy3Y9Aq4Fb1nD+6CM=", want: "TiR0p2ZwnUuBGBEDU5LADWBXpxXy3Y9Aq4Fb1nD+6CM="},
		{value: "https://login.example.com/token", want: "https://login.example.com/token"},
		{value: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_IsReference(t *testing.T) {
	r := Default()
	assert.True(t, r.IsReference("env:X"))
	assert.True(t, r.IsReference("keychain:a"))
	assert.False(t, r.IsReference("vault:secret/x"))
	assert.False(t, r.IsReference("s3cr$t"))
}

func TestRegistry_EmptyKey(t *testing.T) {
	_, err := Default().Resolve(context.Background(), "env:")
	requireCategory(t, err, CategoryInvalidSyntax)
}

func TestRegistry_DuplicateScheme(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewEnvProvider()))
	assert.Error(t, r.Register(NewEnvProvider()))
}

func TestEnvProvider_NotSet(t *testing.T) {
	t.Setenv("TINGLE_TEST_EMPTY", "")
	_, err := NewEnvProvider().Resolve(context.Background(), "TINGLE_TEST_EMPTY")
	resErr := requireCategory(t, err, CategoryNotFound)
	assert.Equal(t, "env:TINGLE_TEST_EMPTY", resErr.Reference)
	assert.Contains(t, resErr.Suggestion(), "export TINGLE_TEST_EMPTY")
}

func TestFileProvider_Errors(t *testing.T) {
	dir := t.TempDir()
	p := NewFileProvider(8)
	ctx := context.Background()

	_, err := p.Resolve(ctx, "relative/secret")
	requireCategory(t, err, CategoryInvalidSyntax)

	_, err = p.Resolve(ctx, filepath.Join(dir, "missing"))
	requireCategory(t, err, CategoryNotFound)

	_, err = p.Resolve(ctx, dir)
	requireCategory(t, err, CategoryInvalidSyntax)

	big := filepath.Join(dir, "big")
	require.NoError(t, os.WriteFile(big, []byte("0123456789"), 0o600))
	_, err = p.Resolve(ctx, big)
	requireCategory(t, err, CategoryInvalidSyntax)

	if runtime.GOOS == "windows" {
		return
	}

	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))
	_, err = p.Resolve(ctx, link)
	requireCategory(t, err, CategoryAccessDenied)

	open := filepath.Join(dir, "open")
	require.NoError(t, os.WriteFile(open, []byte("x"), 0o600))
	require.NoError(t, os.Chmod(open, 0o644))
	_, err = p.Resolve(ctx, open)
	resErr := requireCategory(t, err, CategoryAccessDenied)
	assert.Equal(t, "chmod 600 "+open, resErr.Suggestion())
}

func TestKeychainProvider(t *testing.T) {
	keyring.MockInit()
	p := NewKeychainProvider("tingle-test")
	ctx := context.Background()

	_, err := p.Resolve(ctx, "client-secret")
	resErr := requireCategory(t, err, CategoryNotFound)
	assert.Contains(t, resErr.Suggestion(), "tingle config secret set client-secret")

	require.NoError(t, p.Set("client-secret", "s3cret"))
	got, err := p.Resolve(ctx, "client-secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	require.NoError(t, p.Delete("client-secret"))
	requireCategory(t, p.Delete("client-secret"), CategoryNotFound)
}

func TestResolutionError_OmitsValue(t *testing.T) {
	err := newError(CategoryNotFound, "env", "API_KEY", "environment variable not set", nil)
	assert.Equal(t, "secret env:API_KEY: environment variable not set (NOT_FOUND)", err.Error())
	assert.True(t, err.IsUserVisible())
}
