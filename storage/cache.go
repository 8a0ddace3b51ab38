package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dayplan-api/domain"
)

type backend interface {
	domain.TaskStore
	InsertTask(ctx context.Context, t domain.Task) error
	EnqueueRollover(ctx context.Context, cmd domain.RolloverCommand) error
}

// Cache wraps a Storage instance with Redis-backed caching for the day-view
// read path. Range reads are cached per user under a version counter; every
// write bumps the user's version so stale range entries stop being addressed
// and age out through the TTL.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper around base using the provided Redis
// client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

// ListInRange serves the any-status range read from cache when possible.
func (c *Cache) ListInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	key, ok := c.rangeKey(ctx, userID, from, to)
	if ok {
		if tasks, hit := c.loadRange(ctx, key); hit {
			return tasks, nil
		}
	}
	tasks, err := c.base.ListInRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if ok {
		c.storeRange(ctx, key, tasks)
	}
	return tasks, nil
}

// ListIncompleteInRange always hits the backing store: it feeds rollover
// selection, which must not observe stale data.
func (c *Cache) ListIncompleteInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	return c.base.ListIncompleteInRange(ctx, userID, from, to)
}

func (c *Cache) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	return c.base.GetTask(ctx, userID, taskID)
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.bumpVersion(ctx, t.UserID)
	return nil
}

func (c *Cache) ApplyMoves(ctx context.Context, userID string, moves []domain.TaskMove) error {
	if err := c.base.ApplyMoves(ctx, userID, moves); err != nil {
		return err
	}
	c.bumpVersion(ctx, userID)
	return nil
}

func (c *Cache) UpdateStatus(ctx context.Context, userID, taskID string, status domain.Status, completedAt *time.Time) error {
	if err := c.base.UpdateStatus(ctx, userID, taskID, status, completedAt); err != nil {
		return err
	}
	c.bumpVersion(ctx, userID)
	return nil
}

func (c *Cache) EnqueueRollover(ctx context.Context, cmd domain.RolloverCommand) error {
	return c.base.EnqueueRollover(ctx, cmd)
}

func (c *Cache) rangeKey(ctx context.Context, userID string, from, to time.Time) (string, bool) {
	if c.redis == nil || c.ttl == 0 {
		return "", false
	}
	ver, err := c.redis.Get(ctx, versionKey(userID)).Int64()
	if err != nil && err != redis.Nil {
		return "", false
	}
	return fmt.Sprintf("range:%s:%d:%d:%d", userID, ver, from.UnixMilli(), to.UnixMilli()), true
}

func (c *Cache) loadRange(ctx context.Context, key string) ([]domain.Task, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeRange(ctx context.Context, key string, tasks []domain.Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) bumpVersion(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Incr(ctx, versionKey(userID)).Err()
}

func versionKey(userID string) string {
	return "taskver:" + userID
}
