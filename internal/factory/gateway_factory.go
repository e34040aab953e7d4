package factory

import (
	"fmt"
	"os"

	"github.com/mikey/ela-assistant/internal/adapters/gateway"
	"github.com/mikey/ela-assistant/internal/config"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/ports"
	"go.uber.org/zap"
)

// GatewayFactory creates gateways based on configuration
type GatewayFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	handler core.Handler
}

// NewGatewayFactory creates a new gateway factory
func NewGatewayFactory(cfg *config.Config, logger *zap.Logger, handler core.Handler) *GatewayFactory {
	return &GatewayFactory{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}
}

// CreateGateway creates a gateway based on the configuration
func (f *GatewayFactory) CreateGateway() (ports.Gateway, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch serverCfg.Gateway {
	case "http":
		return gateway.NewHTTPGateway(f.handler, f.logger, serverCfg.ListenAddress, serverCfg.RequestTimeout), nil
	case "native":
		return gateway.NewNativeGateway(f.handler, f.logger, os.Stdin, os.Stdout, serverCfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", serverCfg.Gateway)
	}
}
