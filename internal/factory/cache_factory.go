package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/ela-assistant/internal/adapters/cache"
	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/orchestrator"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCaches builds the three result namespaces on the configured backend.
// Only translations expire.
func (f *CacheFactory) CreateCaches() (orchestrator.Caches, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return orchestrator.Caches{}, err
	}

	base := cache.Options{MaxEntries: cacheCfg.MaxEntries}

	analysisOpts := base
	analysisOpts.Namespace = orchestrator.NamespaceAnalysis

	translationOpts := base
	translationOpts.Namespace = orchestrator.NamespaceTranslation
	translationOpts.TTL = cacheCfg.TranslationTTL
	translationOpts.CleanupFreq = cacheCfg.CleanupFrequency

	dictionaryOpts := base
	dictionaryOpts.Namespace = orchestrator.NamespaceDictionary

	var caches orchestrator.Caches
	if caches.Analysis, err = f.CreateCacheRepository(cacheCfg, analysisOpts); err != nil {
		return orchestrator.Caches{}, err
	}
	if caches.Translation, err = f.CreateCacheRepository(cacheCfg, translationOpts); err != nil {
		StopCaches(caches)
		return orchestrator.Caches{}, err
	}
	if caches.Dictionary, err = f.CreateCacheRepository(cacheCfg, dictionaryOpts); err != nil {
		StopCaches(caches)
		return orchestrator.Caches{}, err
	}

	f.logger.Info("Result caches ready",
		zap.String("type", cacheCfg.Type),
		zap.Int("max_entries", cacheCfg.MaxEntries),
		zap.Duration("translation_ttl", cacheCfg.TranslationTTL))
	return caches, nil
}

// CreateCacheRepository creates one cache namespace on the configured backend
func (f *CacheFactory) CreateCacheRepository(cacheCfg config.CacheConfig, opts cache.Options) (core.CacheRepository, error) {
	switch cacheCfg.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, opts), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		c, err := cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "mysql":
		c, err := cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "redis":
		c, err := cache.NewRedisCache(cacheCfg.RedisAddress, cacheCfg.RedisPassword, cacheCfg.RedisDB, f.logger, opts)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// StopCaches ends background cleanup and closes any database handles
func StopCaches(caches orchestrator.Caches) {
	for _, repo := range []core.CacheRepository{caches.Analysis, caches.Translation, caches.Dictionary} {
		if stopper, ok := repo.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}
}
