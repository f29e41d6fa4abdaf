package ability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/prepforge/internal/question"
)

// Cache stores derived estimates. A miss or an error is never fatal: the
// estimate is recomputed from history.
type Cache interface {
	Get(ctx context.Context, userID string, key question.Key) (Estimate, bool, error)
	Set(ctx context.Context, est Estimate) error
	Invalidate(ctx context.Context, userID string, key question.Key) error
}

func cacheKey(userID string, key question.Key) string {
	return "prepforge:ability:" + userID + ":" + key.ExamType + ":" + key.Topic
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]Estimate
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]Estimate)}
}

func (c *MemoryCache) Get(_ context.Context, userID string, key question.Key) (Estimate, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	est, ok := c.m[cacheKey(userID, key)]
	return est, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, est Estimate) error {
	k := cacheKey(est.UserID, question.Key{ExamType: est.ExamType, Topic: est.Topic})
	c.mu.Lock()
	c.m[k] = est
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string, key question.Key) error {
	c.mu.Lock()
	delete(c.m, cacheKey(userID, key))
	c.mu.Unlock()
	return nil
}

// RedisCache shares estimates between engine instances. Entries expire
// after ttl so a missed invalidation heals itself.
type RedisCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisCache connects to url (redis://host:port/db) and pings it.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, userID string, key question.Key) (Estimate, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(userID, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Estimate{}, false, nil
	}
	if err != nil {
		return Estimate{}, false, fmt.Errorf("redis get: %w", err)
	}
	var est Estimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return Estimate{}, false, fmt.Errorf("decode cached ability: %w", err)
	}
	return est, true, nil
}

func (c *RedisCache) Set(ctx context.Context, est Estimate) error {
	raw, err := json.Marshal(est)
	if err != nil {
		return err
	}
	k := cacheKey(est.UserID, question.Key{ExamType: est.ExamType, Topic: est.Topic})
	return c.rdb.Set(ctx, k, raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string, key question.Key) error {
	return c.rdb.Del(ctx, cacheKey(userID, key)).Err()
}

// Close releases the redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
