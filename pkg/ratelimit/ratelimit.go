// Package ratelimit provides the token bucket limiters shared by the gin and gRPC middleware.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the token bucket parameters.
type Config struct {
	RequestsPerSecond float64
	BurstCapacity     int
	Enabled           bool
}

// Limiter decides whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// bucketTTL is how long an idle bucket is kept in Redis.
const bucketTTL = 60

// tokenBucketScript refills the bucket for the elapsed time and takes one token.
// Bucket state is {last_refill, tokens}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
redis.call('EXPIRE', key, ttl)
return allowed
`)

// RedisLimiter is a token bucket stored in Redis, shared by every replica.
type RedisLimiter struct {
	client *redis.Client
	config Config
	now    func() time.Time
}

// NewRedisLimiter creates a Redis backed limiter.
func NewRedisLimiter(client *redis.Client, config Config) *RedisLimiter {
	return &RedisLimiter{client: client, config: config, now: time.Now}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(l.now().UnixMilli()) / 1000
	allowed, err := tokenBucketScript.Run(ctx, l.client, []string{key},
		l.config.RequestsPerSecond,
		l.config.BurstCapacity,
		now,
		bucketTTL,
	).Int64()
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}

// LocalLimiter keeps one in-process token bucket per key. Buckets idle for
// longer than idleTTL are dropped; by then they have refilled completely, so
// dropping one never grants extra tokens.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	config    Config
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates an in-process limiter.
func NewLocalLimiter(config Config) *LocalLimiter {
	return &LocalLimiter{
		buckets: make(map[string]*localBucket),
		config:  config,
		idleTTL: idleTTL(config),
		now:     time.Now,
	}
}

// idleTTL is the Redis bucket TTL, stretched to the time an empty bucket
// needs to refill when the rate is slow.
func idleTTL(config Config) time.Duration {
	ttl := bucketTTL * time.Second
	if config.RequestsPerSecond > 0 {
		refill := time.Duration(float64(config.BurstCapacity) / config.RequestsPerSecond * float64(time.Second))
		if refill > ttl {
			ttl = refill
		}
	}
	return ttl
}

// Allow implements Limiter. It never fails.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstCapacity)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1), nil
}

// sweep drops idle buckets. Callers hold l.mu.
func (l *LocalLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of live buckets.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// FallbackLimiter asks the primary limiter and switches to the local one when it errors.
type FallbackLimiter struct {
	primary  Limiter
	fallback *LocalLimiter
	log      *zap.Logger
}

// Allow implements Limiter.
func (l *FallbackLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, err := l.primary.Allow(ctx, key)
	if err == nil {
		return allowed, nil
	}
	l.log.Warn("rate limiter backend error, using local bucket", zap.String("key", key), zap.Error(err))
	return l.fallback.Allow(ctx, key)
}

// New returns the limiter for config: a Redis token bucket with a local
// fallback when client is set, otherwise a local limiter alone.
func New(client *redis.Client, config Config, log *zap.Logger) Limiter {
	local := NewLocalLimiter(config)
	if client == nil {
		return local
	}
	return &FallbackLimiter{
		primary:  NewRedisLimiter(client, config),
		fallback: local,
		log:      log,
	}
}
