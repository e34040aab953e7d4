// Command ela-server runs the request service behind the HTTP or native
// messaging gateway.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/di"
	"github.com/mikey/ela-assistant/internal/ports"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ela-server",
	Short: "Request service for the English learning assistant",
	Long: `ela-server answers dictionary, translation and analysis requests.

The gateway is chosen by server.gateway: "http" listens on
server.listen_address, "native" speaks length-prefixed JSON on stdin and
stdout and exits when stdin closes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			container *dig.Container
			err       error
		)
		if configFile != "" {
			container, err = di.BuildContainerFromFile(configFile)
		} else {
			container, err = di.BuildContainer()
		}
		if err != nil {
			return fmt.Errorf("failed to build dependency container: %w", err)
		}
		return container.Invoke(run)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (default searches /etc/ela-assistant and ./configs)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	gateway ports.Gateway,
	llmClient core.LLMClient,
) error {
	defer logger.Sync()

	// Start the gateway
	if err := gateway.Start(); err != nil {
		logger.Error("Failed to start gateway", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// The native gateway ends on its own when the browser closes stdin
	var done <-chan struct{}
	if d, ok := gateway.(interface{ Done() <-chan struct{} }); ok {
		done = d.Done()
	}

	select {
	case <-sigCh:
		logger.Info("Shutting down...")
	case <-done:
		logger.Info("Input closed, shutting down...")
	}

	// Stop the gateway
	if err := gateway.Stop(); err != nil {
		logger.Error("Failed to stop gateway", zap.Error(err))
	}

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
