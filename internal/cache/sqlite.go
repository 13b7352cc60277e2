package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const responseCacheSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
	provider TEXT NOT NULL CHECK (provider IN ('ebay', 'ebay_deals', 'brave', 'openai')),
	cache_key TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL,
	PRIMARY KEY (provider, cache_key)
);

CREATE INDEX IF NOT EXISTS idx_response_cache_fetched_at ON response_cache(fetched_at);
`

// NewWithPath opens (or creates) a SQLite cache file. ":memory:" is accepted.
func NewWithPath(path string) (Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}
	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &cacheImpl{db: conn}, nil
}

func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(responseCacheSchema); err != nil {
		return fmt.Errorf("creating cache schema: %w", err)
	}
	return nil
}
