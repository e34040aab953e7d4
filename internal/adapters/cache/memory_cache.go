package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"go.uber.org/zap"
)

// MemoryCache is an in-memory FIFO implementation of the CacheRepository interface
type MemoryCache struct {
	entries map[string]*list.Element
	order   *list.List
	mu      sync.Mutex
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
	stopCh  chan struct{}
	stopped sync.Once
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger, opts Options) *MemoryCache {
	cache := &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		logger:  logger,
		opts:    opts,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if opts.CleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache
}

// Get retrieves a live cache entry
func (c *MemoryCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}

	entry := el.Value.(*core.CacheEntry)
	if entry.Expired(c.now()) {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, ErrNotFound
	}

	cp := *entry
	return &cp, nil
}

// Put stores a value, evicting the oldest entry if the cache is full
func (c *MemoryCache) Put(ctx context.Context, key string, value *core.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry := &core.CacheEntry{
		Key:        key,
		Value:      value,
		InsertedAt: now,
		ExpiresAt:  c.opts.expiresAt(now),
	}

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}

	if c.opts.MaxEntries > 0 {
		for c.order.Len() >= c.opts.MaxEntries {
			oldest := c.order.Front()
			evicted := c.order.Remove(oldest).(*core.CacheEntry)
			delete(c.entries, evicted.Key)
			c.logger.Debug("Evicted oldest cache entry",
				zap.String("namespace", c.opts.Namespace),
				zap.String("key", evicted.Key))
		}
	}

	c.entries[key] = c.order.PushBack(entry)
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
	return nil
}

// Len returns the number of stored entries, expired or not
func (c *MemoryCache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len(), nil
}

// Keys returns the stored keys from oldest to newest
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*core.CacheEntry).Key)
	}
	return keys
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0

	for el := c.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*core.CacheEntry)
		if entry.Expired(now) {
			c.order.Remove(el)
			delete(c.entries, entry.Key)
			expiredCount++
		}
		el = next
	}

	c.logger.Debug("Cleaned up expired cache entries",
		zap.String("namespace", c.opts.Namespace),
		zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
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

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopped.Do(func() { close(c.stopCh) })
}
