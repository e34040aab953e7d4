package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/factory"
	"github.com/mikey/ela-assistant/internal/logging"
	"github.com/mikey/ela-assistant/internal/orchestrator"
)

// CLIFlags contains the command line flags for the ela CLI. Empty values
// leave the configuration file untouched.
type CLIFlags struct {
	ConfigFile string
	Provider   string
	APIKey     string
	Transport  string
	Endpoint   string
	CacheType  string
	Verbose    bool
	JSONLog    bool
}

// Runtime is what the CLI needs once the container is built
type Runtime struct {
	Config       *config.Config
	Logger       *zap.Logger
	Orchestrator *orchestrator.Orchestrator
	Sender       core.Sender
	Caches       orchestrator.Caches
	llm          core.LLMClient
}

// Close releases the sender, the LLM client and the caches
func (r *Runtime) Close() {
	if closer, ok := r.Sender.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			r.Logger.Debug("Failed to close sender", zap.Error(err))
		}
	}
	if closer, ok := r.llm.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			r.Logger.Debug("Failed to close LLM client", zap.Error(err))
		}
	}
	factory.StopCaches(r.Caches)
}

// handlerResult carries the in-process handler and the LLM client behind it
type handlerResult struct {
	handler core.Handler
	llm     core.LLMClient
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags, callbacks orchestrator.Callbacks) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewFromFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewOrchestratorFactory); err != nil {
		return nil, err
	}

	// Register the in-process handler; the http transport never builds one
	if err := container.Provide(func(
		cfg *config.Config,
		llmFactory *factory.LLMFactory,
		serviceFactory *factory.ServiceFactory,
	) (handlerResult, error) {
		if cfg.GetClient().Transport != "local" {
			return handlerResult{}, nil
		}
		llm, err := llmFactory.CreateLLMClient()
		if err != nil {
			return handlerResult{}, err
		}
		dict, err := serviceFactory.CreateDictionaryClient()
		if err != nil {
			return handlerResult{}, err
		}
		svc, err := serviceFactory.CreateService(llm, dict)
		if err != nil {
			return handlerResult{}, err
		}
		return handlerResult{handler: svc, llm: llm}, nil
	}); err != nil {
		return nil, err
	}

	// Register sender
	if err := container.Provide(func(f *factory.OrchestratorFactory, h handlerResult) (core.Sender, error) {
		return f.CreateSender(h.handler)
	}); err != nil {
		return nil, err
	}

	// Register caches
	if err := container.Provide(func(f *factory.CacheFactory) (orchestrator.Caches, error) {
		return f.CreateCaches()
	}); err != nil {
		return nil, err
	}

	// Register orchestrator
	if err := container.Provide(func(
		f *factory.OrchestratorFactory,
		sender core.Sender,
		caches orchestrator.Caches,
	) (*orchestrator.Orchestrator, error) {
		return f.CreateOrchestrator(sender, caches, callbacks)
	}); err != nil {
		return nil, err
	}

	// Register runtime
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		o *orchestrator.Orchestrator,
		sender core.Sender,
		caches orchestrator.Caches,
		h handlerResult,
	) *Runtime {
		return &Runtime{
			Config:       cfg,
			Logger:       logger,
			Orchestrator: o,
			Sender:       sender,
			Caches:       caches,
			llm:          h.llm,
		}
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags overrides configuration with the flags that were set
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}
	if flags.APIKey != "" {
		v.Set("settings.api_key", flags.APIKey)
	}
	if flags.Transport != "" {
		v.Set("client.transport", flags.Transport)
	}
	if flags.Endpoint != "" {
		v.Set("client.endpoint", flags.Endpoint)
	}
	if flags.CacheType != "" {
		v.Set("cache.type", flags.CacheType)
	}
	if flags.Verbose {
		v.Set("logging.level", "debug")
	}
}
