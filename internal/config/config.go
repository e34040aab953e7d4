package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return NewFromFile("")
}

// NewFromFile loads the named file, or searches the default locations when
// path is empty
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/ela-assistant/")
		v.AddConfigPath("$HOME/.ela-assistant")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("ELA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")

	// Server defaults
	v.SetDefault("server.gateway", "http")
	v.SetDefault("server.listen_address", "127.0.0.1:8765")
	v.SetDefault("server.request_timeout", "90s")

	// Client defaults
	v.SetDefault("client.transport", "local")
	v.SetDefault("client.endpoint", "http://127.0.0.1:8765")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.2)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4.1-nano")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.top_p", 1.0)
	v.SetDefault("openai.max_body_size", 4096)

	// Dictionary defaults
	v.SetDefault("dictionary.base_url", "https://api.dictionaryapi.dev/api/v2/entries/en")
	v.SetDefault("dictionary.timeout", "10s")
	v.SetDefault("dictionary.translate_definitions", true)
	v.SetDefault("dictionary.translation_timeout", "6s")
	v.SetDefault("dictionary.skip_words", []string{})

	// Orchestrator defaults
	v.SetDefault("orchestrator.concurrency", 15)
	v.SetDefault("orchestrator.breaker_threshold", 20)
	v.SetDefault("orchestrator.cooldown_every", 5)
	v.SetDefault("orchestrator.cooldown", "1s")
	v.SetDefault("orchestrator.base_delay", "500ms")
	v.SetDefault("orchestrator.max_delay", "10s")
	v.SetDefault("orchestrator.lookup_attempts", 2)
	v.SetDefault("orchestrator.translate_attempts", 2)
	v.SetDefault("orchestrator.analyze_attempts", 3)
	v.SetDefault("orchestrator.lookup_timeout", "10s")
	v.SetDefault("orchestrator.translate_timeout", "30s")
	v.SetDefault("orchestrator.analyze_timeout", "60s")
	v.SetDefault("orchestrator.rate_limit", 0.0)
	v.SetDefault("orchestrator.rate_burst", 1)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.max_entries", 500)
	v.SetDefault("cache.translation_ttl", "1h")
	v.SetDefault("cache.cleanup_frequency", "10m")
	v.SetDefault("cache.sqlite_path", "/data/ela_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/ela_assistant")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	// Settings defaults
	v.SetDefault("settings.pos_tagging", true)
	v.SetDefault("settings.dictionary", true)
	v.SetDefault("settings.translation", true)
	v.SetDefault("settings.api_key", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
