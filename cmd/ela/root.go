package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/di"
	"github.com/mikey/ela-assistant/internal/orchestrator"
)

var (
	flags      di.CLIFlags
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "ela",
	Short: "English learning assistant",
	Long: `ela annotates English text for Japanese readers.

Example usage:
  ela analyze article.html        # Tag every paragraph of a page
  ela lookup serendipity          # English definition with Japanese notes
  ela translate "Hello world"     # Japanese translation of a paragraph

By default requests run in process. Use --transport http to reach a
running ela-server instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "config file (default searches ./configs and $HOME/.ela-assistant)")
	pf.StringVar(&flags.Provider, "provider", "", "LLM provider (openai, gemini, bedrock, none)")
	pf.StringVar(&flags.APIKey, "api-key", "", "API key for the LLM provider")
	pf.StringVar(&flags.Transport, "transport", "", "how to reach the request service (local, http)")
	pf.StringVar(&flags.Endpoint, "endpoint", "", "ela-server address for the http transport")
	pf.StringVar(&flags.CacheType, "cache", "", "result cache backend (memory, sqlite, mysql, redis)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "logs in JSON format")
	pf.BoolVar(&jsonOutput, "json", false, "output results as JSON")
}

// newRuntime builds the orchestrator for one command
func newRuntime(callbacks orchestrator.Callbacks) (*di.Runtime, error) {
	container, err := di.BuildCLIContainer(&flags, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency container: %w", err)
	}

	var rt *di.Runtime
	if err := container.Invoke(func(r *di.Runtime) { rt = r }); err != nil {
		return nil, err
	}
	return rt, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// describeError turns a classified failure into a short user message
func describeError(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrDisabled):
		return errors.New("this feature is disabled in settings")
	case errors.Is(err, orchestrator.ErrSkipped):
		return errors.New("nothing eligible to look up or translate")
	}

	switch core.KindOf(err) {
	case core.Unauthorized:
		return fmt.Errorf("the LLM provider rejected the API key: %w", err)
	case core.RateLimited:
		return fmt.Errorf("rate limited by the provider, try again later: %w", err)
	case core.ChannelClosed:
		return fmt.Errorf("request service is unavailable: %w", err)
	}
	return err
}
