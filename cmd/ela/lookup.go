package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/orchestrator"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <word>",
	Short: "Look a word up in the dictionary",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(orchestrator.Callbacks{})
	if err != nil {
		return err
	}
	defer rt.Close()

	def, err := rt.Orchestrator.LookupWord(cmd.Context(), args[0])
	if err != nil {
		return describeError(err)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), def)
	}
	if def == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no definition found\n", args[0])
		return nil
	}
	printDefinition(cmd.OutOrStdout(), def)
	return nil
}

func printDefinition(w io.Writer, def *core.DictionaryDefinition) {
	fmt.Fprint(w, def.Word)
	if def.Phonetic != "" {
		fmt.Fprintf(w, "  %s", def.Phonetic)
	}
	fmt.Fprintln(w)

	for _, m := range def.Meanings {
		fmt.Fprintf(w, "  %s\n", m.PartOfSpeech)
		for i, d := range m.Definitions {
			fmt.Fprintf(w, "    %d. %s\n", i+1, d.Definition)
			if d.Example != "" {
				fmt.Fprintf(w, "       e.g. %s\n", d.Example)
			}
		}
	}
}
