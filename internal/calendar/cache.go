package calendar

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// recoveryInterval is how long the cache stays bypassed after a Redis
// failure before the next attempt.
const recoveryInterval = time.Minute

// Cache is a Redis-backed cache for month aggregates. When Redis is
// unreachable the cache bypasses itself and the aggregator falls back
// to direct store reads; a recovery attempt is made periodically.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

// NewCache creates a cache. A nil client disables caching entirely.
func NewCache(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) available() bool {
	if c == nil || c.rdb == nil {
		return false
	}
	if !c.isDown.Load() {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastCheck) < recoveryInterval {
		return false
	}
	c.lastCheck = time.Now()
	return true
}

func (c *Cache) markDown(err error) {
	if !c.isDown.Swap(true) {
		c.logger.Warn().Err(err).Msg("calendar cache unavailable, falling back to direct reads")
	}
	c.mu.Lock()
	c.lastCheck = time.Now()
	c.mu.Unlock()
}

func (c *Cache) markUp() {
	if c.isDown.Swap(false) {
		c.logger.Info().Msg("calendar cache recovered")
	}
}

// Get loads a cached value into dest; returns false on miss or failure.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if !c.available() {
		return false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.markUp()
		return false
	}
	if err != nil {
		c.markDown(err)
		return false
	}
	c.markUp()

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("decode cached value")
		return false
	}
	return true
}

// Set stores a value with the configured TTL. Failures only degrade
// performance, never correctness.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	if !c.available() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("encode cache value")
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.markDown(err)
		return
	}
	c.markUp()
}

// Delete drops a cached value, used for invalidation after writes.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.available() {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.markDown(err)
		return
	}
	c.markUp()
}
