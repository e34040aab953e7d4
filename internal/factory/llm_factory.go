package factory

import (
	"fmt"

	"github.com/mikey/ela-assistant/internal/adapters/bedrock"
	"github.com/mikey/ela-assistant/internal/adapters/gemini"
	"github.com/mikey/ela-assistant/internal/adapters/openai"
	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration.
// Provider "none" yields a nil client: translation falls back to the word
// table and analysis is refused.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateLLMClient()
	case "none":
		f.logger.Warn("No LLM provider configured, analysis is disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
