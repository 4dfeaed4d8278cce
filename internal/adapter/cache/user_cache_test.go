package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "hydration-user-service/internal/domain/user"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func testUsers() []domain.User {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []domain.User{
		{ID: 1, Name: "John Doe", Email: "john@example.com", PasswordHash: "secret-hash", CreatedAt: created},
		{ID: 2, Name: "Jane Smith", Email: "jane@example.com", PasswordHash: "secret-hash", CreatedAt: created},
	}
}

func TestRedisUserListCache_SetAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserListCache(client, 5*time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.SetAll(ctx, testUsers()))

	raw, err := mr.Get(UserListKey)
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-hash")
	assert.Equal(t, 5*time.Minute, mr.TTL(UserListKey))

	users, err := cache.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "John Doe", users[0].Name)
	assert.Empty(t, users[0].PasswordHash)
	assert.True(t, testUsers()[0].CreatedAt.Equal(users[0].CreatedAt))
}

func TestRedisUserListCache_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserListCache(client, time.Minute, zaptest.NewLogger(t))

	users, err := cache.GetAll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, users)
}

func TestRedisUserListCache_EmptyListIsAHit(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserListCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.SetAll(ctx, []domain.User{}))

	users, err := cache.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestRedisUserListCache_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserListCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.SetAll(ctx, testUsers()))
	mr.FastForward(2 * time.Minute)

	users, err := cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Nil(t, users)
}

func TestRedisUserListCache_Invalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserListCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, cache.SetAll(ctx, testUsers()))
	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists(UserListKey))
}

func TestRedisUserListCache_CorruptPayload(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserListCache(client, time.Minute, zaptest.NewLogger(t))

	require.NoError(t, mr.Set(UserListKey, "not json"))

	_, err := cache.GetAll(context.Background())
	assert.Error(t, err)
}

func TestRedisUserListCache_ConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserListCache(client, time.Minute, zaptest.NewLogger(t))
	mr.Close()

	_, err := cache.GetAll(context.Background())
	assert.Error(t, err)
}
