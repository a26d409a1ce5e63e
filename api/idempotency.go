package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper stores seen idempotency keys in Redis so retried mutation
// requests are acknowledged without reapplying the mutation.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(key string) string {
	return "idem:" + key
}

// Add records the key if it does not already exist. It returns true when
// the key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key. It is used when the mutation
// was dropped so the client may retry.
func (r *RedisDeduper) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// nopDeduper accepts everything; used when Redis is not configured.
type nopDeduper struct{}

// NopDeduper returns a Deduper that never reports duplicates.
func NopDeduper() Deduper { return nopDeduper{} }

func (nopDeduper) Add(context.Context, string) (bool, error) { return true, nil }
func (nopDeduper) Remove(context.Context, string) error      { return nil }
