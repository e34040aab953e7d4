package config

import (
	"fmt"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// DictionaryConfig represents the dictionary API configuration
type DictionaryConfig struct {
	BaseURL              string
	Timeout              time.Duration
	TranslateDefinitions bool
	TranslationTimeout   time.Duration
	SkipWords            []string
}

// ServerConfig represents the daemon gateway configuration
type ServerConfig struct {
	Gateway        string
	ListenAddress  string
	RequestTimeout time.Duration
}

// ClientConfig selects how the orchestrator reaches the request service
type ClientConfig struct {
	Transport string
	Endpoint  string
}

// CacheConfig represents the result cache configuration
type CacheConfig struct {
	Type             string
	MaxEntries       int
	TranslationTTL   time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddress     string
	RedisPassword    string
	RedisDB          int
}

// OrchestratorConfig holds the scheduling and retry knobs
type OrchestratorConfig struct {
	Concurrency       int
	BreakerThreshold  int
	CooldownEvery     int
	Cooldown          time.Duration
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	LookupAttempts    int
	TranslateAttempts int
	AnalyzeAttempts   int
	LookupTimeout     time.Duration
	TranslateTimeout  time.Duration
	AnalyzeTimeout    time.Duration
	RateLimit         float64
	RateBurst         int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// MaxBodySize returns the input cap of the configured provider
func (c *Config) MaxBodySize() int {
	provider := c.GetLLM().Provider
	return c.GetInt(provider + ".max_body_size")
}

// MaxTokens returns the output cap of the configured provider
func (c *Config) MaxTokens() int {
	provider := c.GetLLM().Provider
	return c.GetInt(provider + ".max_tokens")
}

// GetDictionary returns the dictionary configuration
func (c *Config) GetDictionary() (DictionaryConfig, error) {
	timeout, err := c.GetDuration("dictionary.timeout")
	if err != nil {
		return DictionaryConfig{}, fmt.Errorf("invalid dictionary timeout: %w", err)
	}
	translationTimeout, err := c.GetDuration("dictionary.translation_timeout")
	if err != nil {
		return DictionaryConfig{}, fmt.Errorf("invalid dictionary translation timeout: %w", err)
	}
	return DictionaryConfig{
		BaseURL:              c.GetString("dictionary.base_url"),
		Timeout:              timeout,
		TranslateDefinitions: c.GetBool("dictionary.translate_definitions"),
		TranslationTimeout:   translationTimeout,
		SkipWords:            c.GetStringSlice("dictionary.skip_words"),
	}, nil
}

// GetServer returns the gateway configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.request_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server request timeout: %w", err)
	}
	return ServerConfig{
		Gateway:        c.GetString("server.gateway"),
		ListenAddress:  c.GetString("server.listen_address"),
		RequestTimeout: timeout,
	}, nil
}

// GetClient returns the transport configuration
func (c *Config) GetClient() ClientConfig {
	return ClientConfig{
		Transport: c.GetString("client.transport"),
		Endpoint:  c.GetString("client.endpoint"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.translation_ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache translation TTL: %w", err)
	}
	cleanupFreq, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		MaxEntries:       c.GetInt("cache.max_entries"),
		TranslationTTL:   ttl,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddress:     c.GetString("cache.redis.address"),
		RedisPassword:    c.GetString("cache.redis.password"),
		RedisDB:          c.GetInt("cache.redis.db"),
	}, nil
}

// GetOrchestrator returns the scheduling and retry configuration
func (c *Config) GetOrchestrator() (OrchestratorConfig, error) {
	durations := map[string]*time.Duration{}
	out := OrchestratorConfig{
		Concurrency:       c.GetInt("orchestrator.concurrency"),
		BreakerThreshold:  c.GetInt("orchestrator.breaker_threshold"),
		CooldownEvery:     c.GetInt("orchestrator.cooldown_every"),
		LookupAttempts:    c.GetInt("orchestrator.lookup_attempts"),
		TranslateAttempts: c.GetInt("orchestrator.translate_attempts"),
		AnalyzeAttempts:   c.GetInt("orchestrator.analyze_attempts"),
		RateLimit:         c.GetFloat64("orchestrator.rate_limit"),
		RateBurst:         c.GetInt("orchestrator.rate_burst"),
	}
	durations["orchestrator.cooldown"] = &out.Cooldown
	durations["orchestrator.base_delay"] = &out.BaseDelay
	durations["orchestrator.max_delay"] = &out.MaxDelay
	durations["orchestrator.lookup_timeout"] = &out.LookupTimeout
	durations["orchestrator.translate_timeout"] = &out.TranslateTimeout
	durations["orchestrator.analyze_timeout"] = &out.AnalyzeTimeout

	for key, dst := range durations {
		d, err := c.GetDuration(key)
		if err != nil {
			return OrchestratorConfig{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}
	return out, nil
}

// GetSettings returns the user feature flags
func (c *Config) GetSettings() core.Settings {
	return core.Settings{
		POSTagging:  c.GetBool("settings.pos_tagging"),
		Dictionary:  c.GetBool("settings.dictionary"),
		Translation: c.GetBool("settings.translation"),
		APIKey:      c.GetString("settings.api_key"),
	}
}
