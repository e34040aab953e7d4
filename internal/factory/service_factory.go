package factory

import (
	"github.com/mikey/ela-assistant/internal/adapters/dictionary"
	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/service"
	"github.com/mikey/ela-assistant/internal/utils"
	"go.uber.org/zap"
)

// ServiceFactory creates the request service and its dictionary client
type ServiceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	text   *utils.TextProcessor
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) *ServiceFactory {
	return &ServiceFactory{
		cfg:    cfg,
		logger: logger,
		text:   text,
	}
}

// CreateDictionaryClient creates the dictionary API client
func (f *ServiceFactory) CreateDictionaryClient() (core.DictionaryClient, error) {
	dictCfg, err := f.cfg.GetDictionary()
	if err != nil {
		return nil, err
	}
	return dictionary.NewClient(dictCfg.BaseURL, dictCfg.Timeout, f.logger), nil
}

// CreateService creates the request service around an optional LLM client
func (f *ServiceFactory) CreateService(llm core.LLMClient, dict core.DictionaryClient) (*service.Service, error) {
	dictCfg, err := f.cfg.GetDictionary()
	if err != nil {
		return nil, err
	}
	return service.New(llm, dict, f.text, f.logger, service.Options{
		TranslateDefinitions: dictCfg.TranslateDefinitions,
		TranslationTimeout:   dictCfg.TranslationTimeout,
		MaxInputSize:         f.cfg.MaxBodySize(),
		MaxTokens:            f.cfg.MaxTokens(),
	}), nil
}
