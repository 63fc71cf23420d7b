// Package cache holds the short revalidation cache used by the market-data
// proxies.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/core"
)

// Store is a byte-oriented key/value cache with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Type.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("cache.redis.addr required"))
		}
		return NewRedisStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown cache type %q", cfg.Type))
	}
}
