package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxTxRetries = 5

// redisEntry is the stored hash field value
type redisEntry struct {
	Value      json.RawMessage `json:"v"`
	InsertedAt int64           `json:"i"`
	ExpiresAt  int64           `json:"e"`
}

// RedisCache is a Redis implementation of the CacheRepository interface.
// Entries live in a hash and insertion order in a list.
type RedisCache struct {
	client   *redis.Client
	logger   *zap.Logger
	opts     Options
	entryKey string
	orderKey string
	now      func() time.Time
	stopCh   chan struct{}
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(addr, password string, db int, logger *zap.Logger, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisCache{
		client:   client,
		logger:   logger,
		opts:     opts,
		entryKey: "ela:" + opts.Namespace + ":entries",
		orderKey: "ela:" + opts.Namespace + ":order",
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	if opts.CleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a live cache entry
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	data, err := c.client.HGet(ctx, c.entryKey, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	entry := &core.CacheEntry{
		Key:        key,
		InsertedAt: fromUnixNano(stored.InsertedAt),
		ExpiresAt:  fromUnixNano(stored.ExpiresAt),
	}
	if entry.Expired(c.now()) {
		if err := c.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to drop expired cache entry", zap.Error(err))
		}
		return nil, ErrNotFound
	}

	entry.Value, err = decodeValue(stored.Value)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Put stores a value, evicting the oldest entries if the cache is full
func (c *RedisCache) Put(ctx context.Context, key string, value *core.Result) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	now := c.now()
	stored, err := json.Marshal(redisEntry{
		Value:      data,
		InsertedAt: unixNano(now),
		ExpiresAt:  unixNano(c.opts.expiresAt(now)),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, c.entryKey, key).Result()
		if err != nil {
			return err
		}
		victims, err := c.victims(ctx, tx, key, exists)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if exists {
				pipe.LRem(ctx, c.orderKey, 0, key)
			}
			for _, v := range victims {
				pipe.LRem(ctx, c.orderKey, 1, v)
				pipe.HDel(ctx, c.entryKey, v)
			}
			pipe.HSet(ctx, c.entryKey, key, stored)
			pipe.RPush(ctx, c.orderKey, key)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = c.client.Watch(ctx, txf, c.entryKey, c.orderKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// victims returns the oldest keys that must go to make room for key
func (c *RedisCache) victims(ctx context.Context, tx *redis.Tx, key string, exists bool) ([]string, error) {
	if c.opts.MaxEntries <= 0 {
		return nil, nil
	}
	n, err := tx.LLen(ctx, c.orderKey).Result()
	if err != nil {
		return nil, err
	}
	if exists {
		n--
	}
	excess := int(n) - c.opts.MaxEntries + 1
	if excess <= 0 {
		return nil, nil
	}

	oldest, err := tx.LRange(ctx, c.orderKey, 0, int64(excess)).Result()
	if err != nil {
		return nil, err
	}
	victims := make([]string, 0, excess)
	for _, k := range oldest {
		if k != key && len(victims) < excess {
			victims = append(victims, k)
		}
	}
	return victims, nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, c.entryKey, key)
		pipe.LRem(ctx, c.orderKey, 0, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Len returns the number of stored entries
func (c *RedisCache) Len(ctx context.Context) (int, error) {
	n, err := c.client.HLen(ctx, c.entryKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return int(n), nil
}

// Cleanup removes expired entries
func (c *RedisCache) Cleanup(ctx context.Context) error {
	all, err := c.client.HGetAll(ctx, c.entryKey).Result()
	if err != nil {
		return fmt.Errorf("failed to scan cache entries: %w", err)
	}

	now := c.now()
	expiredCount := 0
	for key, raw := range all {
		var stored redisEntry
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			continue
		}
		entry := core.CacheEntry{ExpiresAt: fromUnixNano(stored.ExpiresAt)}
		if !entry.Expired(now) {
			continue
		}
		if err := c.Delete(ctx, key); err != nil {
			return err
		}
		expiredCount++
	}

	c.logger.Debug("Cleaned up expired cache entries",
		zap.String("backend", "redis"),
		zap.String("namespace", c.opts.Namespace),
		zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *RedisCache) startCleanupTask() {
	ticker := time.NewTicker(c.opts.CleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the Redis connection
func (c *RedisCache) Stop() {
	close(c.stopCh)
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
