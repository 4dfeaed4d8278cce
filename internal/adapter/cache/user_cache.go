package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "hydration-user-service/internal/domain/user"
)

// UserListKey is the cache key holding the full user list.
const UserListKey = "users:all"

// UserListCache caches the result of listing every user.
type UserListCache interface {
	// GetAll returns the cached list, or nil on a cache miss.
	GetAll(ctx context.Context) ([]domain.User, error)

	// SetAll stores the list with the configured TTL.
	SetAll(ctx context.Context, users []domain.User) error

	// Invalidate drops the cached list.
	Invalidate(ctx context.Context) error
}

// cachedUser is the cache payload. Password hashes never leave the database.
type cachedUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCached(users []domain.User) []cachedUser {
	out := make([]cachedUser, len(users))
	for i, u := range users {
		out[i] = cachedUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
	}
	return out
}

func fromCached(users []cachedUser) []domain.User {
	out := make([]domain.User, len(users))
	for i, u := range users {
		out[i] = domain.User{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
	}
	return out
}

// RedisUserListCache implements UserListCache using Redis as the backing store.
type RedisUserListCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserListCache creates a new Redis-backed user list cache.
func NewRedisUserListCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisUserListCache {
	return &RedisUserListCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// GetAll retrieves the user list from Redis.
func (c *RedisUserListCache) GetAll(ctx context.Context) ([]domain.User, error) {
	data, err := c.client.Get(ctx, UserListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("key", UserListKey))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("key", UserListKey), zap.Error(err))
		return nil, err
	}

	var users []cachedUser
	if err := json.Unmarshal(data, &users); err != nil {
		c.log.Error("failed to unmarshal cached users", zap.String("key", UserListKey), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("key", UserListKey), zap.Int("count", len(users)))
	return fromCached(users), nil
}

// SetAll stores the user list in Redis with TTL.
func (c *RedisUserListCache) SetAll(ctx context.Context, users []domain.User) error {
	data, err := json.Marshal(toCached(users))
	if err != nil {
		c.log.Error("failed to marshal users for cache", zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, UserListKey, data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.String("key", UserListKey), zap.Error(err))
		return err
	}

	c.log.Debug("cached users", zap.Int("count", len(users)), zap.Duration("ttl", c.ttl))
	return nil
}

// Invalidate removes the user list from Redis.
func (c *RedisUserListCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, UserListKey).Err(); err != nil {
		c.log.Error("failed to delete from cache", zap.String("key", UserListKey), zap.Error(err))
		return err
	}

	c.log.Debug("invalidated cache", zap.String("key", UserListKey))
	return nil
}
