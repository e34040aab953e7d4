package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/adapters/gateway"
	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/orchestrator"
	"github.com/mikey/ela-assistant/internal/transport"
)

func testConfig(set map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for k, val := range set {
		v.Set(k, val)
	}
	return config.NewFromViper(v)
}

func TestCreateCachesPerBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	backends := map[string]map[string]any{
		"memory": {"cache.type": "memory"},
		"sqlite": {"cache.type": "sqlite", "cache.sqlite_path": filepath.Join(t.TempDir(), "nested", "cache.db")},
		"redis":  {"cache.type": "redis", "cache.redis.address": mr.Addr()},
	}
	for name, set := range backends {
		t.Run(name, func(t *testing.T) {
			set["cache.max_entries"] = 2
			caches, err := NewCacheFactory(testConfig(set), zap.NewNop()).CreateCaches()
			require.NoError(t, err)
			defer StopCaches(caches)

			ctx := context.Background()
			require.NoError(t, caches.Analysis.Put(ctx, "k", core.EmptyAnalysis()))
			require.NoError(t, caches.Dictionary.Put(ctx, "k", nil))

			n, err := caches.Translation.Len(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			entry, err := caches.Dictionary.Get(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, entry.Value)
		})
	}
}

func TestCreateCachesUnknownType(t *testing.T) {
	_, err := NewCacheFactory(testConfig(map[string]any{"cache.type": "tape"}), zap.NewNop()).CreateCaches()
	assert.ErrorContains(t, err, "unsupported cache type")
}

func TestCreateLLMClient(t *testing.T) {
	client, err := NewLLMFactory(testConfig(map[string]any{"llm.provider": "none"}), zap.NewNop()).CreateLLMClient()
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = NewLLMFactory(testConfig(map[string]any{"settings.api_key": "sk-test"}), zap.NewNop()).CreateLLMClient()
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = NewLLMFactory(testConfig(nil), zap.NewNop()).CreateLLMClient()
	assert.ErrorContains(t, err, "API key")

	_, err = NewLLMFactory(testConfig(map[string]any{"llm.provider": "oracle"}), zap.NewNop()).CreateLLMClient()
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestCreateGateway(t *testing.T) {
	handler := core.Handler(nil)

	gw, err := NewGatewayFactory(testConfig(nil), zap.NewNop(), handler).CreateGateway()
	require.NoError(t, err)
	assert.IsType(t, &gateway.HTTPGateway{}, gw)

	gw, err = NewGatewayFactory(testConfig(map[string]any{"server.gateway": "native"}), zap.NewNop(), handler).CreateGateway()
	require.NoError(t, err)
	assert.IsType(t, &gateway.NativeGateway{}, gw)

	_, err = NewGatewayFactory(testConfig(map[string]any{"server.gateway": "smtp"}), zap.NewNop(), handler).CreateGateway()
	assert.Error(t, err)
}

func TestCreateOrchestrator(t *testing.T) {
	cfg := testConfig(map[string]any{
		"orchestrator.concurrency": 3,
		"orchestrator.cooldown":    "5ms",
		"settings.translation":     false,
	})
	f := NewOrchestratorFactory(cfg, zap.NewNop(), nil)

	orchCfg, err := f.CreateOrchestratorConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, orchCfg.Concurrency)
	assert.Equal(t, 5*time.Millisecond, orchCfg.Cooldown)

	sender, err := f.CreateSender(nil)
	require.NoError(t, err)
	assert.IsType(t, &transport.Local{}, sender)

	caches, err := NewCacheFactory(cfg, zap.NewNop()).CreateCaches()
	require.NoError(t, err)
	defer StopCaches(caches)

	o, err := f.CreateOrchestrator(sender, caches, orchestrator.Callbacks{})
	require.NoError(t, err)
	assert.False(t, o.Settings().Translation)
	assert.Equal(t, orchestrator.ModeBulk, o.Mode())
}
