package maps

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, ttl), mr
}

func TestRedisCacheMiss(t *testing.T) {
	c, _ := newRedisCache(t, time.Hour)
	if _, ok := c.Get(context.Background(), "Berlin"); ok {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestRedisCacheRoundTripWithTTL(t *testing.T) {
	c, mr := newRedisCache(t, 30*time.Minute)
	ctx := context.Background()

	c.Set(ctx, " Berlin", Found("Berlin", 52.52, 13.405))

	key := redisKeyPrefix + "berlin"
	if !mr.Exists(key) {
		t.Fatalf("expected key %q to be written", key)
	}
	if ttl := mr.TTL(key); ttl != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %v", ttl)
	}

	got, ok := c.Get(ctx, "berlin")
	if !ok || !got.Resolved() || *got.Latitude != 52.52 || *got.Longitude != 13.405 {
		t.Fatalf("unexpected cached candidate %+v (hit=%v)", got, ok)
	}

	mr.FastForward(31 * time.Minute)
	if _, ok := c.Get(ctx, "berlin"); ok {
		t.Error("expected the entry to expire")
	}
}

func TestRedisCacheSkipsUnusableValues(t *testing.T) {
	tests := map[string]string{
		"unresolved candidate": `{"name":"Nowhere","error":"not found"}`,
		"garbage":              `not json`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			c, mr := newRedisCache(t, time.Hour)
			if err := mr.Set(redisKeyPrefix+"nowhere", raw); err != nil {
				t.Fatalf("seed: %v", err)
			}
			if got, ok := c.Get(context.Background(), "Nowhere"); ok {
				t.Errorf("expected a miss, got %+v", got)
			}
		})
	}
}

func TestRedisCacheUnavailableIsAMiss(t *testing.T) {
	c, mr := newRedisCache(t, time.Hour)
	mr.Close()

	ctx := context.Background()
	c.Set(ctx, "Berlin", Found("Berlin", 52.52, 13.405))
	if _, ok := c.Get(ctx, "Berlin"); ok {
		t.Error("expected a miss while redis is down")
	}
}

func TestGeocoderUsesRedisCache(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":52.52,"lng":13.405}}}]}`)
	})
	cache, _ := newRedisCache(t, time.Hour)

	g := NewGeocoder(client, cache, nil)
	first := g.Resolve(context.Background(), "Berlin", time.Second)
	second := g.Resolve(context.Background(), "BERLIN", time.Second)

	if hits.Load() != 1 {
		t.Errorf("expected a single upstream call, got %d", hits.Load())
	}
	if !first.Resolved() || !second.Resolved() || second.Name != "BERLIN" {
		t.Errorf("unexpected candidates %+v / %+v", first, second)
	}
}
