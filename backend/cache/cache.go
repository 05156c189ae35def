package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"quizhub/backend/config"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin JSON wrapper around Redis. A nil *Cache is valid and
// behaves as a cache that never hits.
type Cache struct {
	client *redis.Client
}

func New(cfg *config.Config) (*Cache, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	db, _ := strconv.Atoi(cfg.RedisDB)
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &Cache{client: client}, nil
}

// GetJSON unmarshals the cached value under key into dest. Returns false on
// a miss (or when the cache is disabled).
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// SetJSON stores value under key with the given TTL. Write errors are not
// reported.
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, ttl)
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}

func (c *Cache) Close() {
	if c != nil {
		_ = c.client.Close()
	}
}
