package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, opts Options) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			namespace VARCHAR(64) NOT NULL,
			cache_key VARCHAR(160) NOT NULL,
			value MEDIUMBLOB NULL,
			inserted_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0,
			UNIQUE KEY uq_namespace_key (namespace, cache_key),
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLCache{sqlCache: newSQLCache(db, "mysql", logger, opts)}, nil
}
