package di

import (
	"go.uber.org/dig"

	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/factory"
	"github.com/mikey/ela-assistant/internal/logging"
	"github.com/mikey/ela-assistant/internal/ports"
	"github.com/mikey/ela-assistant/internal/service"
	"github.com/mikey/ela-assistant/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
// for the ela-server daemon
func BuildContainer() (*dig.Container, error) {
	return buildServerContainer(config.New)
}

// BuildContainerFromFile is BuildContainer with an explicit config file
func BuildContainerFromFile(path string) (*dig.Container, error) {
	return buildServerContainer(func() (*config.Config, error) {
		return config.NewFromFile(path)
	})
}

func buildServerContainer(loadConfig func() (*config.Config, error)) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(loadConfig); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register dictionary client
	if err := container.Provide(func(f *factory.ServiceFactory) (core.DictionaryClient, error) {
		return f.CreateDictionaryClient()
	}); err != nil {
		return nil, err
	}

	// Register request service
	if err := container.Provide(func(f *factory.ServiceFactory, llm core.LLMClient, dict core.DictionaryClient) (*service.Service, error) {
		return f.CreateService(llm, dict)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *service.Service) core.Handler { return s }); err != nil {
		return nil, err
	}

	// Register gateway
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.GatewayFactory) (ports.Gateway, error) {
		return f.CreateGateway()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers the factories shared by the daemon and the CLI
func provideCommon(container *dig.Container) error {
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewServiceFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	return nil
}
