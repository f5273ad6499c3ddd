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
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestExpiryFor(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	assert.Equal(t, int64(1_700_000_000_000+3600*1000-100), ExpiryFor(now, 3600))
	assert.Equal(t, int64(1_700_000_000_000-100), ExpiryFor(now, 0))
}

func TestExpiryFor_OutOfRangeLifetimes(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	for _, expiresIn := range []int64{math.MaxInt64 / 100, math.MaxInt64 / 1000, math.MaxInt64} {
		expiry := ExpiryFor(now, expiresIn)
		assert.Equal(t, int64(math.MaxInt64-100), expiry, "expires_in=%d", expiresIn)
		assert.False(t, TokenRecord{AccessToken: "tok", ExpiresAtMillis: expiry}.Expired(now.UnixMilli()))
	}

	assert.Equal(t, int64(1_700_000_000_000-100), ExpiryFor(now, -5))
	assert.Equal(t, int64(1_700_000_000_000-100), ExpiryFor(now, math.MinInt64))
}

func TestMemoryTokenCache(t *testing.T) {
	c := NewMemoryTokenCache()

	_, ok := c.Get()
	assert.False(t, ok)
	assert.True(t, c.IsExpired(0), "empty cache is expired")

	c.Put("tok", 1000)
	record, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, TokenRecord{AccessToken: "tok", ExpiresAtMillis: 1000}, record)

	assert.False(t, c.IsExpired(999))
	assert.True(t, c.IsExpired(1000))
	assert.True(t, c.IsExpired(1001))

	c.Put("", 5000)
	assert.True(t, c.IsExpired(0), "empty token is expired")
}

func TestMemoryTokenCache_NoTornReads(t *testing.T) {
	c := NewMemoryTokenCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				n := int64(i*1000 + j)
				c.Put(fmt.Sprintf("tok-%d", n), n)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for k := 0; k < 2000; k++ {
			record, ok := c.Get()
			if !ok {
				continue
			}
			if record.AccessToken != fmt.Sprintf("tok-%d", record.ExpiresAtMillis) {
				t.Errorf("torn read: %+v", record)
				return
			}
		}
	}()

	wg.Wait()
	<-done
}

func TestDecodeRecord(t *testing.T) {
	record, err := decodeRecord(encodeRecord(TokenRecord{AccessToken: "a|b", ExpiresAtMillis: 42}))
	require.NoError(t, err)
	assert.Equal(t, TokenRecord{AccessToken: "a|b", ExpiresAtMillis: 42}, record)

	_, err = decodeRecord("no-separator")
	assert.ErrorIs(t, err, ErrCacheCorruption)

	_, err = decodeRecord("soon|tok")
	assert.ErrorIs(t, err, ErrCacheCorruption)
}

func TestKeyringTokenCache(t *testing.T) {
	keyring.MockInit()

	c := NewKeyringTokenCache("tingle-test", "client-1", nil)
	assert.True(t, c.IsExpired(0))

	c.Put("persisted", 5000)

	// A fresh instance reads the record back from the keychain.
	reloaded := NewKeyringTokenCache("tingle-test", "client-1", nil)
	record, ok := reloaded.Get()
	require.True(t, ok)
	assert.Equal(t, "persisted", record.AccessToken)
	assert.Equal(t, int64(5000), record.ExpiresAtMillis)

	require.NoError(t, reloaded.Clear())
	_, ok = NewKeyringTokenCache("tingle-test", "client-1", nil).Get()
	assert.False(t, ok)
}

func TestKeyringTokenCache_CorruptRecordIsMiss(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("tingle-test", "access_token_client-2", "garbage"))

	c := NewKeyringTokenCache("tingle-test", "client-2", nil)
	_, ok := c.Get()
	assert.False(t, ok)
	assert.True(t, c.IsExpired(0))
}

func TestKeyringTokenCache_WriteFailureKeepsMemoryCopy(t *testing.T) {
	keyring.MockInitWithError(fmt.Errorf("keychain locked"))

	c := NewKeyringTokenCache("tingle-test", "client-3", nil)
	c.Put("tok", 9000)

	record, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, "tok", record.AccessToken)
}

func TestSQLiteTokenCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")

	c, err := OpenSQLiteTokenCache(SQLiteCacheConfig{Path: path, Key: "client-1"})
	require.NoError(t, err)
	assert.True(t, c.IsExpired(0))

	c.Put("first", 1000)
	c.Put("second", 2000)
	require.NoError(t, c.Close())

	reopened, err := OpenSQLiteTokenCache(SQLiteCacheConfig{Path: path, Key: "client-1"})
	require.NoError(t, err)
	defer reopened.Close()

	record, ok := reopened.Get()
	require.True(t, ok)
	assert.Equal(t, TokenRecord{AccessToken: "second", ExpiresAtMillis: 2000}, record)
	assert.False(t, reopened.IsExpired(1999))

	other, err := OpenSQLiteTokenCache(SQLiteCacheConfig{Path: path, Key: "client-2"})
	require.NoError(t, err)
	defer other.Close()
	_, ok = other.Get()
	assert.False(t, ok, "records are keyed")
}

func TestSQLiteTokenCache_CorruptRowIsMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")

	c, err := OpenSQLiteTokenCache(SQLiteCacheConfig{Path: path, Key: "client-1"})
	require.NoError(t, err)
	_, err = c.db.ExecContext(context.Background(),
		`INSERT INTO tokens (cache_key, access_token, expires_at_ms, updated_at) VALUES (?, ?, ?, ?)`,
		"client-1", "tok", "not-a-number", 0)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := OpenSQLiteTokenCache(SQLiteCacheConfig{Path: path, Key: "client-1"})
	require.NoError(t, err)
	defer reopened.Close()

	_, ok := reopened.Get()
	assert.False(t, ok)
}

func TestOpenSQLiteTokenCache_RequiresPath(t *testing.T) {
	_, err := OpenSQLiteTokenCache(SQLiteCacheConfig{})
	assert.Error(t, err)
}
