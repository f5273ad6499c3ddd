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
	"strings"

	"github.com/zalando/go-keyring"
)

// KeychainProvider resolves keychain:account references against the system
// keychain (macOS Keychain, Secret Service, Windows Credential Manager).
type KeychainProvider struct {
	service string
}

// NewKeychainProvider creates a provider for entries under service.
func NewKeychainProvider(service string) *KeychainProvider {
	return &KeychainProvider{service: service}
}

func (k *KeychainProvider) Scheme() string {
	return "keychain"
}

// Resolve reads the entry for account.
func (k *KeychainProvider) Resolve(_ context.Context, account string) (string, error) {
	value, err := keyring.Get(k.service, account)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, keyring.ErrNotFound):
		e := newError(CategoryNotFound, k.Scheme(), account, "keychain entry not found", nil)
		e.Hint = "store it with: tingle config secret set " + account
		return "", e
	case isUnavailable(err):
		return "", newError(CategoryUnavailable, k.Scheme(), account, "keychain is locked or unavailable", err)
	default:
		return "", newError(CategoryAccessDenied, k.Scheme(), account, "keychain access failed", err)
	}
}

// Set stores value for account.
func (k *KeychainProvider) Set(account, value string) error {
	if err := keyring.Set(k.service, account, value); err != nil {
		return newError(CategoryUnavailable, k.Scheme(), account, "failed to store keychain entry", err)
	}
	return nil
}

// Delete removes the entry for account.
func (k *KeychainProvider) Delete(account string) error {
	err := keyring.Delete(k.service, account)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return newError(CategoryNotFound, k.Scheme(), account, "keychain entry not found", nil)
	default:
		return newError(CategoryUnavailable, k.Scheme(), account, "failed to delete keychain entry", err)
	}
}

func isUnavailable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"locked", "dbus", "secret service", "not available", "user interaction"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
