package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/taskdeck/pkg/observability"
	"github.com/platinummonkey/taskdeck/pkg/storage"
)

// DefaultListLimit is the page size used when the client does not ask
// for one. Only this default first page is cached.
const DefaultListLimit = 50

// cachedList bundles a page of tasks with the owner's total count so a
// list response can be rebuilt entirely from cache.
type cachedList struct {
	Tasks []*Task `json:"tasks"`
	Total int64   `json:"total"`
}

// CachedStore decorates a Store with a two-tier read cache: an in-process
// LRU in front of Redis. Every key embeds the owner's subject identifier
// so entries can never be served across users. Mutations write through to
// the underlying store and invalidate both tiers.
type CachedStore struct {
	store   Store
	redis   *redis.Client
	l1      *lru.Cache[string, []byte]
	ttl     map[string]time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewCachedStore wraps store with the cache tiers. redisClient may be nil
// (Redis tier disabled).
func NewCachedStore(store Store, redisClient *redis.Client, config storage.Config, logger *observability.Logger, metrics *observability.Metrics) (*CachedStore, error) {
	size := config.L1CacheSize
	if size <= 0 {
		size = storage.DefaultConfig().L1CacheSize
	}
	l1, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 cache: %w", err)
	}

	return &CachedStore{
		store:   store,
		redis:   redisClient,
		l1:      l1,
		ttl:     config.CacheTTL,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func taskKey(ownerID string, id int64) string {
	return fmt.Sprintf("task:%s:%d", ownerID, id)
}

func listKey(ownerID string) string {
	return fmt.Sprintf("tasks:%s:list", ownerID)
}

// Create implements Store
func (c *CachedStore) Create(ctx context.Context, ownerID string, req *CreateTaskRequest) (*Task, error) {
	task, err := c.store.Create(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	c.invalidateList(ctx, ownerID)
	return task, nil
}

// List implements Store
func (c *CachedStore) List(ctx context.Context, ownerID string, limit, offset int) ([]*Task, int64, error) {
	cacheable := limit == DefaultListLimit && offset == 0
	key := listKey(ownerID)

	if cacheable {
		if data, ok := c.get(ctx, key); ok {
			var cached cachedList
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached.Tasks, cached.Total, nil
			}
			c.delete(ctx, key)
		}
	}

	tasks, total, err := c.store.List(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		if data, err := json.Marshal(cachedList{Tasks: tasks, Total: total}); err == nil {
			c.set(ctx, key, data, c.ttl["task_list"])
		}
	}

	return tasks, total, nil
}

// Get implements Store
func (c *CachedStore) Get(ctx context.Context, ownerID string, id int64) (*Task, error) {
	key := taskKey(ownerID, id)

	if data, ok := c.get(ctx, key); ok {
		var task Task
		if err := json.Unmarshal(data, &task); err == nil {
			return &task, nil
		}
		c.delete(ctx, key)
	}

	task, err := c.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(task); err == nil {
		c.set(ctx, key, data, c.ttl["task"])
	}

	return task, nil
}

// Update implements Store
func (c *CachedStore) Update(ctx context.Context, ownerID string, id int64, req *UpdateTaskRequest) (*Task, error) {
	task, err := c.store.Update(ctx, ownerID, id, req)
	if err != nil {
		return nil, err
	}
	c.invalidateTask(ctx, ownerID, id)
	return task, nil
}

// ToggleComplete implements Store
func (c *CachedStore) ToggleComplete(ctx context.Context, ownerID string, id int64) (*Task, error) {
	task, err := c.store.ToggleComplete(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	c.invalidateTask(ctx, ownerID, id)
	return task, nil
}

// Delete implements Store
func (c *CachedStore) Delete(ctx context.Context, ownerID string, id int64) error {
	if err := c.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	c.invalidateTask(ctx, ownerID, id)
	return nil
}

// HealthCheck implements Store
func (c *CachedStore) HealthCheck(ctx context.Context) error {
	return c.store.HealthCheck(ctx)
}

// get checks L1 first, then Redis. A Redis hit is promoted into L1.
func (c *CachedStore) get(ctx context.Context, key string) ([]byte, bool) {
	if data, ok := c.l1.Get(key); ok {
		c.hit("l1")
		return data, true
	}
	c.miss("l1")

	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.miss("redis")
		return nil, false
	}
	if err != nil {
		c.miss("redis")
		c.logger.WithError(err).WithField("key", key).Debug("redis get failed")
		return nil, false
	}

	c.hit("redis")
	c.l1.Add(key, data)
	return data, true
}

func (c *CachedStore) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	c.l1.Add(key, data)
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("redis set failed")
	}
}

func (c *CachedStore) delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		c.l1.Remove(key)
	}
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).Debug("redis del failed")
	}
}

func (c *CachedStore) invalidateTask(ctx context.Context, ownerID string, id int64) {
	c.delete(ctx, taskKey(ownerID, id), listKey(ownerID))
}

func (c *CachedStore) invalidateList(ctx context.Context, ownerID string) {
	c.delete(ctx, listKey(ownerID))
}

func (c *CachedStore) hit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

func (c *CachedStore) miss(tier string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(tier).Inc()
	}
}
