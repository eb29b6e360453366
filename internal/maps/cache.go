package maps

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// MemoryCache keeps geocode results in process memory.
type MemoryCache struct {
	c *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, place string) (LocationCandidate, bool) {
	v, ok := m.c.Get(cacheKey(place))
	if !ok {
		return LocationCandidate{}, false
	}
	c, ok := v.(LocationCandidate)
	return c, ok
}

func (m *MemoryCache) Set(_ context.Context, place string, c LocationCandidate) {
	m.c.SetDefault(cacheKey(place), c)
}

const redisKeyPrefix = "geocode:"

// RedisCache shares geocode results across API instances.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, place string) (LocationCandidate, bool) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+cacheKey(place)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "geocode cache read failed", "error", err)
		}
		return LocationCandidate{}, false
	}
	var c LocationCandidate
	if err := json.Unmarshal(raw, &c); err != nil || !c.Resolved() {
		return LocationCandidate{}, false
	}
	return c, true
}

func (r *RedisCache) Set(ctx context.Context, place string, c LocationCandidate) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+cacheKey(place), raw, r.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "geocode cache write failed", "error", err)
	}
}
