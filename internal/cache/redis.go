package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matthewgall/epicdeals/internal/models"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
	Prefix   string
}

type redisCache struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedis(cfg RedisConfig) (Cache, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	options := &redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(options)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return newRedisCache(client, cfg.Prefix), nil
}

func newRedisCache(client *redis.Client, prefix string) *redisCache {
	if prefix == "" {
		prefix = "epicdeals"
	}
	return &redisCache{client: client, keyPrefix: prefix}
}

func (c *redisCache) Get(ctx context.Context, provider models.Provider, key string) (*models.CacheEntry, error) {
	value, err := c.client.Get(ctx, c.buildKey(provider, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying redis cache: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(value), &entry); err != nil {
		return nil, fmt.Errorf("decoding redis cache: %w", err)
	}
	return &entry, nil
}

func (c *redisCache) Set(ctx context.Context, provider models.Provider, key string, payload interface{}, ttl time.Duration) error {
	if !provider.Valid() {
		return fmt.Errorf("unknown cache provider %q", provider)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	entry := models.CacheEntry{
		Provider:    provider,
		CacheKey:    key,
		PayloadJSON: string(payloadJSON),
		FetchedAt:   time.Now().UTC(),
		TTLSeconds:  int(ttl.Seconds()),
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding redis cache: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(provider, key), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("storing redis cache: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, provider models.Provider, key string) error {
	if err := c.client.Del(ctx, c.buildKey(provider, key)).Err(); err != nil {
		return fmt.Errorf("deleting redis cache: %w", err)
	}
	return nil
}

// ClearExpired is a no-op; redis expires keys itself.
func (c *redisCache) ClearExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (c *redisCache) ClearAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("clearing redis cache: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning redis keys: %w", err)
	}
	return nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

func (c *redisCache) buildKey(provider models.Provider, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.keyPrefix, provider, key)
}
