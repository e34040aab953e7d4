package factory

import (
	"fmt"

	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/orchestrator"
	"github.com/mikey/ela-assistant/internal/skiplist"
	"github.com/mikey/ela-assistant/internal/transport"
	"github.com/mikey/ela-assistant/internal/utils"
	"go.uber.org/zap"
)

// OrchestratorFactory creates the page-side request pipeline
type OrchestratorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	text   *utils.TextProcessor
}

// NewOrchestratorFactory creates a new orchestrator factory
func NewOrchestratorFactory(cfg *config.Config, logger *zap.Logger, text *utils.TextProcessor) *OrchestratorFactory {
	return &OrchestratorFactory{
		cfg:    cfg,
		logger: logger,
		text:   text,
	}
}

// CreateSender connects to the request service: in process through handler,
// or over HTTP to a running ela-server
func (f *OrchestratorFactory) CreateSender(handler core.Handler) (core.Sender, error) {
	clientCfg := f.cfg.GetClient()

	switch clientCfg.Transport {
	case "local":
		return transport.NewLocal(handler, f.logger), nil
	case "http":
		return transport.NewHTTPSender(clientCfg.Endpoint, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported client transport: %s", clientCfg.Transport)
	}
}

// CreateOrchestratorConfig maps configuration onto scheduler and retry settings
func (f *OrchestratorFactory) CreateOrchestratorConfig() (orchestrator.Config, error) {
	oc, err := f.cfg.GetOrchestrator()
	if err != nil {
		return orchestrator.Config{}, err
	}
	return orchestrator.Config{
		Concurrency:       oc.Concurrency,
		BreakerThreshold:  oc.BreakerThreshold,
		CooldownEvery:     oc.CooldownEvery,
		Cooldown:          oc.Cooldown,
		BaseDelay:         oc.BaseDelay,
		MaxDelay:          oc.MaxDelay,
		LookupAttempts:    oc.LookupAttempts,
		TranslateAttempts: oc.TranslateAttempts,
		AnalyzeAttempts:   oc.AnalyzeAttempts,
		LookupTimeout:     oc.LookupTimeout,
		TranslateTimeout:  oc.TranslateTimeout,
		AnalyzeTimeout:    oc.AnalyzeTimeout,
		RateLimit:         oc.RateLimit,
		RateBurst:         oc.RateBurst,
	}, nil
}

// CreateOrchestrator wires an orchestrator around sender and caches
func (f *OrchestratorFactory) CreateOrchestrator(sender core.Sender, caches orchestrator.Caches, callbacks orchestrator.Callbacks) (*orchestrator.Orchestrator, error) {
	orchCfg, err := f.CreateOrchestratorConfig()
	if err != nil {
		return nil, err
	}
	dictCfg, err := f.cfg.GetDictionary()
	if err != nil {
		return nil, err
	}

	return orchestrator.New(orchCfg, f.cfg.GetSettings(), orchestrator.Deps{
		Sender:    sender,
		Caches:    caches,
		Skip:      skiplist.NewChecker(dictCfg.SkipWords, f.logger),
		Text:      f.text,
		Callbacks: callbacks,
		Logger:    f.logger,
	}), nil
}
