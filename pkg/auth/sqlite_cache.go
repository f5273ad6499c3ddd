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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteTokenCache persists the token record in a SQLite database.
// Use it on hosts without a keychain service (containers, CI runners).
//
// Database errors never fail a request: reads degrade to a miss and writes
// keep the in-memory copy.
type SQLiteTokenCache struct {
	db     *sql.DB
	key    string
	logger *slog.Logger

	mu     sync.RWMutex
	record TokenRecord
	set    bool
	loaded bool
}

// SQLiteCacheConfig contains configuration for SQLite token storage.
type SQLiteCacheConfig struct {
	// Path is the filesystem path to the database file
	// Example: /Users/user/.config/tingle/tokens.db
	Path string

	// Key identifies the record, typically the client ID
	Key string

	// Logger receives warnings about unreadable records (default: slog.Default())
	Logger *slog.Logger
}

// OpenSQLiteTokenCache opens (and creates if needed) a SQLite token cache.
func OpenSQLiteTokenCache(cfg SQLiteCacheConfig) (*SQLiteTokenCache, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	connStr := "file:" + cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the record pair consistent across goroutines
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tokens (
		cache_key TEXT PRIMARY KEY,
		access_token TEXT NOT NULL,
		expires_at_ms TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteTokenCache{
		db:     db,
		key:    cfg.Key,
		logger: logger,
	}, nil
}

// Close closes the database.
func (c *SQLiteTokenCache) Close() error {
	return c.db.Close()
}

// Get implements TokenCache.
func (c *SQLiteTokenCache) Get() (TokenRecord, bool) {
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
func (c *SQLiteTokenCache) Put(token string, expiresAtMillis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = TokenRecord{AccessToken: token, ExpiresAtMillis: expiresAtMillis}
	c.set = true
	c.loaded = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `INSERT INTO tokens (cache_key, access_token, expires_at_ms, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			access_token = excluded.access_token,
			expires_at_ms = excluded.expires_at_ms,
			updated_at = excluded.updated_at`,
		c.key, token, fmt.Sprintf("%d", expiresAtMillis), time.Now().Unix(),
	)
	if err != nil {
		c.logger.Warn("failed to persist token in database", "error", err)
	}
}

// IsExpired implements TokenCache.
func (c *SQLiteTokenCache) IsExpired(nowMillis int64) bool {
	record, ok := c.Get()
	return !ok || record.Expired(nowMillis)
}

// load reads the persisted row. Caller must hold the write lock.
func (c *SQLiteTokenCache) load() {
	c.loaded = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var token, expiry string
	err := c.db.QueryRowContext(ctx,
		`SELECT access_token, expires_at_ms FROM tokens WHERE cache_key = ?`, c.key,
	).Scan(&token, &expiry)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("failed to read token from database", "error", err)
		}
		return
	}

	record, err := parseRecord(token, expiry)
	if err != nil {
		tokenCacheCorruptions.WithLabelValues("sqlite").Inc()
		c.logger.Warn("discarding corrupted database token record", "error", err)
		return
	}

	c.record = record
	c.set = true
}
