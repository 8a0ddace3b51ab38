package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper prevents the same rollover day-pair from being applied twice for a
// user, and best-effort serializes concurrent invocations of that pair.
type Deduper interface {
	// Add records the key and returns true if it was newly added.
	Add(ctx context.Context, userID, dayPair string) (bool, error)
	// Remove deletes a previously added key so a failed rollover can retry.
	Remove(ctx context.Context, userID, dayPair string) error
}

// RedisDeduper stores processed rollover keys in Redis so all instances skip
// day-pairs another instance already handled.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(userID, dayPair string) string {
	return fmt.Sprintf("rollover:%s:%s", userID, dayPair)
}

func (r *RedisDeduper) Add(ctx context.Context, userID, dayPair string) (bool, error) {
	return r.client.SetNX(ctx, r.key(userID, dayPair), 1, r.ttl).Result()
}

func (r *RedisDeduper) Remove(ctx context.Context, userID, dayPair string) error {
	return r.client.Del(ctx, r.key(userID, dayPair)).Err()
}
