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
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// MaxFileSize is the default limit for a secret file.
const MaxFileSize = 64 * 1024

// FileProvider resolves file:/absolute/path references.
//
// The path must be absolute and must not be a symlink. On Unix the file
// must not be readable by group or others.
type FileProvider struct {
	maxSize int64
}

// NewFileProvider creates a file provider. A zero maxSize uses MaxFileSize.
func NewFileProvider(maxSize int64) *FileProvider {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	return &FileProvider{maxSize: maxSize}
}

func (f *FileProvider) Scheme() string {
	return "file"
}

// Resolve returns the file contents with trailing whitespace trimmed.
func (f *FileProvider) Resolve(_ context.Context, path string) (string, error) {
	path = expandHome(path)
	if !filepath.IsAbs(path) {
		return "", f.fail(CategoryInvalidSyntax, path, "path must be absolute", nil)
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", f.fail(CategoryNotFound, path, "file not found", err)
		}
		return "", f.fail(CategoryAccessDenied, path, "cannot stat file", err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return "", f.fail(CategoryAccessDenied, path, "symlinks are not followed", nil)
	}
	if !info.Mode().IsRegular() {
		return "", f.fail(CategoryInvalidSyntax, path, "not a regular file", nil)
	}
	if info.Size() > f.maxSize {
		return "", f.fail(CategoryInvalidSyntax, path, "file too large", nil)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		err := f.fail(CategoryAccessDenied, path, "file is readable by other users", nil)
		err.Hint = "chmod 600 " + path
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", f.fail(CategoryAccessDenied, path, "cannot read file", err)
	}
	return strings.TrimRight(string(data), " \t\r\n"), nil
}

func (f *FileProvider) fail(category Category, path, message string, cause error) *ResolutionError {
	return newError(category, f.Scheme(), path, message, cause)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
