// Package cache is a scoped key/value cache on Redis with explicit TTLs and
// invalidation by tag. Instances are owned by their component and carry a
// namespace, so no global mutable cache state is shared across concerns.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb *redis.Client
	ns  string
}

func New(rdb *redis.Client, namespace string) *Cache {
	return &Cache{rdb: rdb, ns: namespace}
}

func (c *Cache) key(k string) string {
	return c.ns + ":" + k
}

func (c *Cache) tagKey(tag string) string {
	return c.ns + ":tag:" + tag
}

// Get returns the cached value and whether it was present. Redis errors are
// treated as a miss; the cache is never load-bearing.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("⚠️ cache get %s: %v", key, err)
		return "", false
	}
	return val, true
}

// Set stores value under key for ttl and registers the key under each tag so
// InvalidateTag can drop related entries together.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration, tags ...string) error {
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, c.key(key), value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, c.tagKey(tag), c.key(key))
		// Keep the tag set around at least as long as its members.
		pipe.Expire(ctx, c.tagKey(tag), ttl+time.Minute)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a single entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}

// InvalidateTag removes every entry registered under tag.
func (c *Cache) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := c.rdb.SMembers(ctx, c.tagKey(tag)).Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return c.rdb.Del(ctx, c.tagKey(tag)).Err()
}
