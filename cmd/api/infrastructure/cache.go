package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hydration-user-service/internal/adapter/cache"
	"hydration-user-service/internal/config"
	redisclient "hydration-user-service/pkg/redis"
)

// NewRedisClient creates a new Redis client with configuration
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	redisConfig := redisclient.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}

	rdb, err := redisclient.NewClient(ctx, redisConfig, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}

// NewUserListCache builds the shared user list cache for CACHE_DRIVER.
// rdb may be nil when the memory driver is selected.
func NewUserListCache(cfg *config.Config, rdb *redisclient.Client, l *zap.Logger) (cache.UserListCache, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	switch cfg.Cache.Driver {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("cache driver redis requires a redis client")
		}
		return cache.NewRedisUserListCache(rdb.Client, ttl, l), nil
	case "memory":
		return cache.NewMemoryUserListCache(cache.MemoryConfig{
			Capacity:  cfg.Cache.Capacity,
			NumShards: cfg.Cache.NumShards,
			TTL:       ttl,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
}
