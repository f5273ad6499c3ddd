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
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ExpirySafetyMargin is subtracted from the server-declared lifetime so a
// token is treated as expired slightly before the server rejects it.
const ExpirySafetyMargin = 100 * time.Millisecond

// TokenRecord is a cached access token and its absolute expiry.
type TokenRecord struct {
	AccessToken     string
	ExpiresAtMillis int64
}

// ExpiresAt returns the expiry as a time.Time.
func (r TokenRecord) ExpiresAt() time.Time {
	return time.UnixMilli(r.ExpiresAtMillis)
}

// Expired reports whether the record is unusable at nowMillis.
func (r TokenRecord) Expired(nowMillis int64) bool {
	return r.AccessToken == "" || nowMillis >= r.ExpiresAtMillis
}

// ExpiryFor computes the cache expiry for a token issued at now that lives
// for expiresIn seconds. Negative lifetimes count as zero and lifetimes past
// the int64 millisecond range saturate instead of wrapping into the past.
func ExpiryFor(now time.Time, expiresIn int64) int64 {
	nowMillis := now.UnixMilli()
	margin := ExpirySafetyMargin.Milliseconds()
	if expiresIn < 0 {
		expiresIn = 0
	}
	if expiresIn > (math.MaxInt64-nowMillis)/1000 {
		return math.MaxInt64 - margin
	}
	return nowMillis + expiresIn*1000 - margin
}

// TokenCache stores the last acquired access token.
// Implementations must be safe for concurrent use and must never return a
// token paired with another token's expiry.
type TokenCache interface {
	// Get returns the cached record, or false when nothing is cached.
	Get() (TokenRecord, bool)

	// Put replaces the cached record.
	Put(token string, expiresAtMillis int64)

	// IsExpired reports true when no record exists, the token is empty,
	// or nowMillis >= the record's expiry.
	IsExpired(nowMillis int64) bool
}

// MemoryTokenCache is an in-process TokenCache.
type MemoryTokenCache struct {
	mu     sync.RWMutex
	record TokenRecord
	set    bool
}

// NewMemoryTokenCache creates an empty in-memory cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{}
}

// Get implements TokenCache.
func (c *MemoryTokenCache) Get() (TokenRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record, c.set
}

// Put implements TokenCache.
func (c *MemoryTokenCache) Put(token string, expiresAtMillis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = TokenRecord{AccessToken: token, ExpiresAtMillis: expiresAtMillis}
	c.set = true
}

// IsExpired implements TokenCache.
func (c *MemoryTokenCache) IsExpired(nowMillis int64) bool {
	record, ok := c.Get()
	return !ok || record.Expired(nowMillis)
}

// encodeRecord serializes a record as "<expiry-ms>|<token>".
func encodeRecord(r TokenRecord) string {
	return strconv.FormatInt(r.ExpiresAtMillis, 10) + "|" + r.AccessToken
}

// decodeRecord parses the output of encodeRecord.
func decodeRecord(value string) (TokenRecord, error) {
	expiry, token, ok := strings.Cut(value, "|")
	if !ok {
		return TokenRecord{}, fmt.Errorf("%w: missing separator", ErrCacheCorruption)
	}
	return parseRecord(token, expiry)
}

// parseRecord validates a persisted token/expiry pair.
func parseRecord(token, expiry string) (TokenRecord, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(expiry), 10, 64)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("%w: invalid expiry %q", ErrCacheCorruption, expiry)
	}
	return TokenRecord{AccessToken: token, ExpiresAtMillis: ms}, nil
}
