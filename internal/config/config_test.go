package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	orch, err := cfg.GetOrchestrator()
	require.NoError(t, err)
	assert.Equal(t, 15, orch.Concurrency)
	assert.Equal(t, 20, orch.BreakerThreshold)
	assert.Equal(t, 5, orch.CooldownEvery)
	assert.Equal(t, time.Second, orch.Cooldown)
	assert.Equal(t, 3, orch.AnalyzeAttempts)
	assert.Equal(t, 2, orch.LookupAttempts)
	assert.Equal(t, 60*time.Second, orch.AnalyzeTimeout)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "memory", cache.Type)
	assert.Equal(t, time.Hour, cache.TranslationTTL)

	settings := cfg.GetSettings()
	assert.True(t, settings.POSTagging)
	assert.True(t, settings.Dictionary)
	assert.True(t, settings.Translation)

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, 4096, cfg.MaxBodySize())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: gemini
orchestrator:
  concurrency: 4
  cooldown: 250ms
dictionary:
  skip_words: [the, a]
`), 0o600))
	t.Setenv("ELA_SETTINGS_TRANSLATION", "false")

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	orch, err := cfg.GetOrchestrator()
	require.NoError(t, err)
	assert.Equal(t, 4, orch.Concurrency)
	assert.Equal(t, 250*time.Millisecond, orch.Cooldown)
	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.False(t, cfg.GetSettings().Translation)

	dict, err := cfg.GetDictionary()
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "a"}, dict.SkipWords)
	assert.Equal(t, 6*time.Second, dict.TranslationTimeout)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("orchestrator.cooldown", "soon")

	_, err := NewFromViper(v).GetOrchestrator()
	assert.ErrorContains(t, err, "orchestrator.cooldown")
}
