package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores encoded series for a bounded time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by plain redis string keys.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "marketdash:series:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, val, ttl).Err()
}

// CachedSource memoizes another SeriesSource. Cache failures are logged and
// fall through to the upstream.
type CachedSource struct {
	src    SeriesSource
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedSource(src SeriesSource, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{src: src, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(id string, r Range) string {
	start := ""
	if !r.Start.IsZero() {
		start = r.Start.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("%s|%s|%s|%s", id, r.Period, r.Interval, start)
}

func (c *CachedSource) Series(ctx context.Context, id string, r Range) ([]Point, error) {
	key := cacheKey(id, r)
	if b, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("series cache read failed", "key", key, "err", err)
	} else if ok {
		var pts []Point
		if err := json.Unmarshal(b, &pts); err == nil {
			return pts, nil
		}
	}

	pts, err := c.src.Series(ctx, id, r)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(pts); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			c.logger.Warn("series cache write failed", "key", key, "err", err)
		}
	}
	return pts, nil
}
