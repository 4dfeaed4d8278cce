package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/viccon/sturdyc"
	"go.uber.org/zap"

	domain "hydration-user-service/internal/domain/user"
)

// MemoryConfig holds the sturdyc settings for the in-process cache.
type MemoryConfig struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
}

// Validate checks if the configuration values are valid.
func (c MemoryConfig) Validate() error {
	switch {
	case c.Capacity <= 0:
		return fmt.Errorf("memory cache capacity must be greater than 0")
	case c.NumShards <= 0:
		return fmt.Errorf("memory cache shards must be greater than 0")
	case c.TTL <= 0:
		return fmt.Errorf("memory cache ttl must be greater than 0")
	case c.EvictionPercentage < 1 || c.EvictionPercentage > 100:
		return fmt.Errorf("memory cache eviction percentage must be between 1 and 100")
	}
	return nil
}

// MemoryUserListCache implements UserListCache with an in-process sturdyc client.
// It suits single-instance deployments that run without Redis.
type MemoryUserListCache struct {
	client *sturdyc.Client[[]domain.User]
	log    *zap.Logger
}

// NewMemoryUserListCache creates a sturdyc-backed user list cache.
func NewMemoryUserListCache(cfg MemoryConfig, log *zap.Logger) (*MemoryUserListCache, error) {
	if cfg.EvictionPercentage == 0 {
		cfg.EvictionPercentage = 10
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[[]domain.User](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage)

	return &MemoryUserListCache{client: client, log: log}, nil
}

// GetAll returns the cached list, or nil on a miss.
func (c *MemoryUserListCache) GetAll(_ context.Context) ([]domain.User, error) {
	users, ok := c.client.Get(UserListKey)
	if !ok {
		c.log.Debug("cache miss", zap.String("key", UserListKey))
		return nil, nil
	}

	c.log.Debug("cache hit", zap.String("key", UserListKey), zap.Int("count", len(users)))
	return clone(users), nil
}

// SetAll stores a copy of the list with all password hashes cleared.
func (c *MemoryUserListCache) SetAll(_ context.Context, users []domain.User) error {
	c.client.Set(UserListKey, fromCached(toCached(users)))
	c.log.Debug("cached users", zap.Int("count", len(users)))
	return nil
}

// Invalidate drops the cached list.
func (c *MemoryUserListCache) Invalidate(_ context.Context) error {
	c.client.Delete(UserListKey)
	c.log.Debug("invalidated cache", zap.String("key", UserListKey))
	return nil
}

// clone keeps callers from mutating the slice shared through the cache.
func clone(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	copy(out, users)
	return out
}
