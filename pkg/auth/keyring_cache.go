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

package auth

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keychain service name for cached tokens.
const DefaultKeyringService = "tingle"

// KeyringTokenCache persists the token record in the system keychain so it
// survives process restarts.
// Supported platforms:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
//
// The record is loaded lazily on first use and kept in memory afterwards.
// Keychain errors never fail a request: reads degrade to a miss and writes
// keep the in-memory copy.
type KeyringTokenCache struct {
	service string
	user    string
	logger  *slog.Logger

	mu     sync.RWMutex
	record TokenRecord
	set    bool
	loaded bool
}

// NewKeyringTokenCache creates a cache stored under service/user.
// The user is typically derived from the client ID so several credentials
// can share one keychain.
func NewKeyringTokenCache(service, user string, logger *slog.Logger) *KeyringTokenCache {
	if service == "" {
		service = DefaultKeyringService
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyringTokenCache{
		service: service,
		user:    "access_token_" + user,
		logger:  logger,
	}
}

// Get implements TokenCache.
func (c *KeyringTokenCache) Get() (TokenRecord, bool) {
	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		return c.record, c.set
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.load()
	}
	return c.record, c.set
}

// Put implements TokenCache.
func (c *KeyringTokenCache) Put(token string, expiresAtMillis int64) {
	record := TokenRecord{AccessToken: token, ExpiresAtMillis: expiresAtMillis}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = record
	c.set = true
	c.loaded = true

	if err := keyring.Set(c.service, c.user, encodeRecord(record)); err != nil {
		c.logger.Warn("failed to persist token in keychain",
			"service", c.service,
			"error", err,
		)
	}
}

// IsExpired implements TokenCache.
func (c *KeyringTokenCache) IsExpired(nowMillis int64) bool {
	record, ok := c.Get()
	return !ok || record.Expired(nowMillis)
}

// Clear removes the persisted record.
func (c *KeyringTokenCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = TokenRecord{}
	c.set = false
	c.loaded = true

	if err := keyring.Delete(c.service, c.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// load reads the keychain entry. Caller must hold the write lock.
func (c *KeyringTokenCache) load() {
	c.loaded = true

	value, err := keyring.Get(c.service, c.user)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			c.logger.Warn("failed to read token from keychain",
				"service", c.service,
				"error", err,
			)
		}
		return
	}

	record, err := decodeRecord(value)
	if err != nil {
		tokenCacheCorruptions.WithLabelValues("keyring").Inc()
		c.logger.Warn("discarding corrupted keychain token record",
			"service", c.service,
			"error", err,
		)
		return
	}

	c.record = record
	c.set = true
}
