// Package cache provides a Redis-backed scan report cache shared across
// process instances. When Redis is unavailable the cache degrades
// gracefully: reads become misses and writes are dropped, so the
// scanner keeps serving fresh results instead of failing requests.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/scanner"
)

const keyPrefix = "scan:group:%s"

// Config holds Redis connection settings.
type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// RedisCache implements scanner.ReportCache on Redis with per-key TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	maxFailures  int
	lastCheck    time.Time
	checkEvery   time.Duration
}

var _ scanner.ReportCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies connectivity. A failed
// initial ping returns the cache in degraded mode rather than an error;
// it recovers on its own once Redis is reachable.
func NewRedisCache(cfg Config, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	c := &RedisCache{
		client:      client,
		ttl:         ttl,
		logger:      logger.With().Str("component", "redis-cache").Logger(),
		maxFailures: 3,
		checkEvery:  30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Str("addr", cfg.Address).Msg("redis unreachable, starting in degraded mode")
		return c
	}

	c.healthy = true
	c.lastCheck = time.Now()
	c.logger.Info().Str("addr", cfg.Address).Msg("redis connected")
	return c
}

// Get returns the cached report for an asset. Unhealthy or failing
// Redis turns into a miss.
func (c *RedisCache) Get(ctx context.Context, asset string) (*scanner.GroupReport, bool) {
	if !c.available(ctx) {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(asset)).Bytes()
	if err == redis.Nil {
		c.recordSuccess()
		return nil, false
	}
	if err != nil {
		c.recordFailure(err)
		return nil, false
	}
	c.recordSuccess()

	var report scanner.GroupReport
	if err := json.Unmarshal(data, &report); err != nil {
		c.logger.Error().Err(err).Str("asset", asset).Msg("corrupt cached report, dropping key")
		c.client.Del(ctx, c.key(asset))
		return nil, false
	}
	return &report, true
}

// Set stores a report with the cache TTL. Failures are logged and
// counted, never surfaced.
func (c *RedisCache) Set(ctx context.Context, asset string, report *scanner.GroupReport) {
	if !c.available(ctx) {
		return
	}

	data, err := json.Marshal(report)
	if err != nil {
		c.logger.Error().Err(err).Str("asset", asset).Msg("failed to marshal report")
		return
	}

	if err := c.client.Set(ctx, c.key(asset), data, c.ttl).Err(); err != nil {
		c.recordFailure(err)
		return
	}
	c.recordSuccess()
}

// IsHealthy reports whether Redis is currently usable.
func (c *RedisCache) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(asset string) string {
	return fmt.Sprintf(keyPrefix, asset)
}

// available checks health, probing for recovery periodically while
// degraded.
func (c *RedisCache) available(ctx context.Context) bool {
	c.mu.RLock()
	healthy := c.healthy
	lastCheck := c.lastCheck
	c.mu.RUnlock()

	if healthy {
		return true
	}
	if time.Since(lastCheck) < c.checkEvery {
		return false
	}

	c.mu.Lock()
	c.lastCheck = time.Now()
	c.mu.Unlock()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return false
	}

	c.mu.Lock()
	c.healthy = true
	c.failureCount = 0
	c.mu.Unlock()
	c.logger.Info().Msg("redis recovered")
	return true
}

func (c *RedisCache) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	if c.failureCount >= c.maxFailures && c.healthy {
		c.healthy = false
		c.lastCheck = time.Now()
		c.logger.Warn().Err(err).Int("failures", c.failureCount).Msg("redis marked unhealthy")
	}
}

func (c *RedisCache) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount = 0
}
