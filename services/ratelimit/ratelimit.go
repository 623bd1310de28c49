// Package ratelimit counts actions per key inside fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simagang/simagang/core"
)

// Limiter reports whether one more action is allowed for key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

// New returns a redis backed Limiter when client is set, an in-process one otherwise.
func New(client *redis.Client, logger core.Logger) Limiter {
	if client == nil {
		return NewMemoryLimiter()
	}
	return NewRedisLimiter(client, logger)
}

type memoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	nowFunc func() time.Time
}

type bucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter() Limiter {
	return &memoryLimiter{buckets: make(map[string]*bucket), nowFunc: time.Now}
}

func (l *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.windowEnd) {
		l.evict(now)
		l.buckets[key] = &bucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// evict drops expired buckets. Callers hold mu.
func (l *memoryLimiter) evict(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.windowEnd) {
			delete(l.buckets, k)
		}
	}
}

const script = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

type redisLimiter struct {
	client *redis.Client
	script *redis.Script
	logger core.Logger
}

func NewRedisLimiter(client *redis.Client, logger core.Logger) Limiter {
	return &redisLimiter{client: client, script: redis.NewScript(script), logger: logger}
}

// Allow fails open: a redis error lets the action through.
func (l *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()

	allowed, err := l.script.Run(ctx, l.client, []string{"ratelimit:" + key}, ttl, limit).Int64()
	if err != nil {
		l.logger.Warn("rate limiter unavailable", err)
		return true
	}
	return allowed == 1
}
