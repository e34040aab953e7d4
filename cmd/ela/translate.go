package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/orchestrator"
)

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate a paragraph into Japanese",
	Long: `Translate sends a paragraph to the LLM provider. Without arguments the
paragraph is read from stdin. When the provider fails without a
classified error, a built-in phrase table is used instead.`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = string(data)
	}

	rt, err := newRuntime(orchestrator.Callbacks{})
	if err != nil {
		return err
	}
	defer rt.Close()

	tr, err := rt.Orchestrator.TranslateParagraph(cmd.Context(), text)
	if err != nil {
		return describeError(err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), tr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tr.Text)
	if tr.Method == core.MethodSimple {
		fmt.Fprintln(cmd.ErrOrStderr(), "(simple translation, no LLM available)")
	}
	return nil
}
