package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"go.uber.org/zap"
)

// sqlCache holds the FIFO logic shared by the SQLite and MySQL backends.
// Insertion order is the auto-increment seq column.
type sqlCache struct {
	db      *sql.DB
	logger  *zap.Logger
	opts    Options
	backend string
	now     func() time.Time
	stopCh  chan struct{}
}

func newSQLCache(db *sql.DB, backend string, logger *zap.Logger, opts Options) *sqlCache {
	c := &sqlCache{
		db:      db,
		logger:  logger,
		opts:    opts,
		backend: backend,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if opts.CleanupFreq > 0 {
		go c.startCleanupTask()
	}

	return c
}

// Get retrieves a live cache entry
func (c *sqlCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		value                 []byte
		insertedAt, expiresAt int64
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT value, inserted_at, expires_at
		FROM result_cache
		WHERE namespace = ? AND cache_key = ?
	`, c.opts.Namespace, key).Scan(&value, &insertedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry := &core.CacheEntry{
		Key:        key,
		InsertedAt: fromUnixNano(insertedAt),
		ExpiresAt:  fromUnixNano(expiresAt),
	}
	if entry.Expired(c.now()) {
		return nil, ErrNotFound
	}

	entry.Value, err = decodeValue(value)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Put stores a value, evicting the oldest entry of the namespace if it is full
func (c *sqlCache) Put(ctx context.Context, key string, value *core.Result) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM result_cache
		WHERE namespace = ? AND cache_key = ?
	`, c.opts.Namespace, key); err != nil {
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}

	if c.opts.MaxEntries > 0 {
		if err := c.evictLocked(ctx, tx); err != nil {
			return err
		}
	}

	now := c.now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO result_cache (namespace, cache_key, value, inserted_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.opts.Namespace, key, data, unixNano(now), unixNano(c.opts.expiresAt(now))); err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

// evictLocked drops the oldest rows until there is room for one more
func (c *sqlCache) evictLocked(ctx context.Context, tx *sql.Tx) error {
	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM result_cache WHERE namespace = ?
	`, c.opts.Namespace).Scan(&count); err != nil {
		return fmt.Errorf("failed to count cache entries: %w", err)
	}

	for ; count >= c.opts.MaxEntries; count-- {
		var seq int64
		if err := tx.QueryRowContext(ctx, `
			SELECT MIN(seq) FROM result_cache WHERE namespace = ?
		`, c.opts.Namespace).Scan(&seq); err != nil {
			return fmt.Errorf("failed to find oldest cache entry: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM result_cache WHERE seq = ?`, seq); err != nil {
			return fmt.Errorf("failed to evict cache entry: %w", err)
		}
		c.logger.Debug("Evicted oldest cache entry",
			zap.String("backend", c.backend),
			zap.String("namespace", c.opts.Namespace),
			zap.Int64("seq", seq))
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM result_cache
		WHERE namespace = ? AND cache_key = ?
	`, c.opts.Namespace, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Len returns the number of stored entries in the namespace
func (c *sqlCache) Len(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM result_cache WHERE namespace = ?
	`, c.opts.Namespace).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM result_cache
		WHERE namespace = ? AND expires_at > 0 AND expires_at <= ?
	`, c.opts.Namespace, c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries",
			zap.String("backend", c.backend),
			zap.String("namespace", c.opts.Namespace),
			zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *sqlCache) startCleanupTask() {
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

// Stop stops the background cleanup task and closes the database connection
func (c *sqlCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close database", zap.String("backend", c.backend), zap.Error(err))
	}
}
