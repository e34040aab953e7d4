package cache

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, opts Options) (*SQLiteCache, error) {
	// Namespaces open the same file on separate handles
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			namespace TEXT NOT NULL,
			cache_key TEXT NOT NULL,
			value BLOB,
			inserted_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			UNIQUE (namespace, cache_key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteCache{sqlCache: newSQLCache(db, "sqlite", logger, opts)}, nil
}
