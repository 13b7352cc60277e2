package cache

import (
	"path/filepath"
	"strings"

	"github.com/matthewgall/epicdeals/internal/config"
)

// Open builds the configured backend. It returns a nil Cache for provider "none".
func Open(cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewWithPath(filepath.Join(cfg.Directory, "cache.db"))
	case "redis":
		return NewRedis(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			UseTLS:   cfg.Redis.UseTLS,
		})
	default:
		return nil, ErrUnknownProvider
	}
}
