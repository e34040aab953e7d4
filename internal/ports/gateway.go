package ports

import (
	"context"

	"github.com/mikey/ela-assistant/internal/core"
)

// Gateway defines the interface for exposing the request service to clients
type Gateway interface {
	// Handle executes a single request and returns its result
	Handle(ctx context.Context, req core.Request) (*core.Result, error)

	// Start starts the gateway
	Start() error

	// Stop stops the gateway
	Stop() error
}
