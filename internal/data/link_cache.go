package data

import (
	"context"
	"errors"
	"time"

	"clickpipe/internal/biz"
	"clickpipe/internal/conf"

	"github.com/redis/go-redis/v9"
)

const linkCachePrefix = "link:"

// Compile-time interface checks
var (
	_ biz.LinkCache = (*RedisLinkCache)(nil)
	_ biz.LinkCache = (*noopLinkCache)(nil)
)

// RedisLinkCache stores code -> destination as plain strings with a TTL no
// longer than the link's remaining lifetime.
type RedisLinkCache struct {
	rdb    *redis.Client
	maxTTL time.Duration
}

// NewLinkCache returns a no-op cache when Redis is not configured.
func NewLinkCache(data *Data, c *conf.Data) biz.LinkCache {
	if data.rdb == nil {
		return &noopLinkCache{}
	}
	var maxTTL time.Duration
	if c.Redis != nil {
		maxTTL = c.Redis.MaxTTL.Duration
	}
	return NewRedisLinkCache(data.rdb, maxTTL)
}

// NewRedisLinkCache creates a Redis-backed cache. A zero maxTTL leaves
// never-expiring links cached without a TTL.
func NewRedisLinkCache(rdb *redis.Client, maxTTL time.Duration) *RedisLinkCache {
	return &RedisLinkCache{rdb: rdb, maxTTL: maxTTL}
}

func (c *RedisLinkCache) cacheKey(code string) string {
	return linkCachePrefix + code
}

// Get returns ("", nil) on a miss.
func (c *RedisLinkCache) Get(ctx context.Context, code string) (string, error) {
	destination, err := c.rdb.Get(ctx, c.cacheKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return destination, nil
}

// Set caches destination. ttl is the link's remaining lifetime, zero for
// links that never expire; maxTTL caps both.
func (c *RedisLinkCache) Set(ctx context.Context, code, destination string, ttl time.Duration) error {
	if ttl < 0 {
		return nil
	}
	if c.maxTTL > 0 && (ttl == 0 || ttl > c.maxTTL) {
		ttl = c.maxTTL
	}
	return c.rdb.Set(ctx, c.cacheKey(code), destination, ttl).Err()
}

func (c *RedisLinkCache) Invalidate(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, c.cacheKey(code)).Err()
}

// noopLinkCache is used when Redis is not available. Every read misses.
type noopLinkCache struct{}

func (noopLinkCache) Get(context.Context, string) (string, error) {
	return "", nil
}

func (noopLinkCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (noopLinkCache) Invalidate(context.Context, string) error {
	return nil
}
