package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/matthewgall/epicdeals/internal/models"
)

// Cache stores upstream responses keyed by provider and key. A nil Cache is
// valid for callers that use Lookup and Store.
type Cache interface {
	Get(ctx context.Context, provider models.Provider, key string) (*models.CacheEntry, error)
	Set(ctx context.Context, provider models.Provider, key string, payload interface{}, ttl time.Duration) error
	Delete(ctx context.Context, provider models.Provider, key string) error
	ClearExpired(ctx context.Context) (int64, error)
	ClearAll(ctx context.Context) error
	Close() error
}

var ErrUnknownProvider = errors.New("unknown cache provider")

type cacheImpl struct {
	db *sql.DB
}

// New wraps an open database that already carries the response_cache schema.
func New(db *sql.DB) Cache {
	return &cacheImpl{db: db}
}

// Lookup decodes a cached payload into T. ok is false on a miss or when c is nil.
func Lookup[T any](ctx context.Context, c Cache, provider models.Provider, key string) (value T, ok bool, err error) {
	if c == nil {
		return value, false, nil
	}
	entry, err := c.Get(ctx, provider, key)
	if err != nil {
		return value, false, fmt.Errorf("checking cache: %w", err)
	}
	if entry == nil {
		return value, false, nil
	}
	if err := json.Unmarshal([]byte(entry.PayloadJSON), &value); err != nil {
		// evict so the next lookup misses and the caller refetches
		if delErr := c.Delete(ctx, provider, key); delErr != nil {
			log.Printf("Warning: failed to evict undecodable cache entry %s/%s: %v", provider, key, delErr)
		}
		return value, false, fmt.Errorf("unmarshaling cached result: %w", err)
	}
	return value, true, nil
}

// Store writes payload when c is non-nil and ttl is positive.
func Store(ctx context.Context, c Cache, provider models.Provider, key string, payload interface{}, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	return c.Set(ctx, provider, key, payload, ttl)
}

func (c *cacheImpl) Get(ctx context.Context, provider models.Provider, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	var fetchedAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT provider, cache_key, payload_json, fetched_at, ttl_seconds
		FROM response_cache
		WHERE provider = ? AND cache_key = ? AND datetime(fetched_at, '+' || ttl_seconds || ' seconds') > datetime('now')
		LIMIT 1
	`, provider, key).Scan(
		&entry.Provider, &entry.CacheKey, &entry.PayloadJSON, &fetchedAt, &entry.TTLSeconds,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying cache: %w", err)
	}

	parsedTime, err := time.Parse("2006-01-02 15:04:05", fetchedAt)
	if err != nil {
		parsedTime, err = time.Parse(time.RFC3339, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing fetched_at time: %w", err)
		}
	}
	entry.FetchedAt = parsedTime

	return &entry, nil
}

func (c *cacheImpl) Set(ctx context.Context, provider models.Provider, key string, payload interface{}, ttl time.Duration) error {
	if !provider.Valid() {
		return fmt.Errorf("unknown cache provider %q", provider)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO response_cache (provider, cache_key, payload_json, fetched_at, ttl_seconds)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?)
		ON CONFLICT(provider, cache_key) DO UPDATE SET
			payload_json = excluded.payload_json,
			fetched_at = excluded.fetched_at,
			ttl_seconds = excluded.ttl_seconds
	`, provider, key, string(payloadJSON), int(ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}

	return nil
}

func (c *cacheImpl) Delete(ctx context.Context, provider models.Provider, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM response_cache WHERE provider = ? AND cache_key = ?`, provider, key)
	return err
}

func (c *cacheImpl) ClearExpired(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM response_cache
		WHERE datetime(fetched_at, '+' || ttl_seconds || ' seconds') <= datetime('now')
	`)
	if err != nil {
		return 0, fmt.Errorf("clearing expired cache entries: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}

func (c *cacheImpl) ClearAll(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM response_cache")
	return err
}

func (c *cacheImpl) Close() error {
	return c.db.Close()
}
