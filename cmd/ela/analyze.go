package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/adapters/page"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/lexicon"
	"github.com/mikey/ela-assistant/internal/orchestrator"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file.html]",
	Short: "Tag the parts of speech of every paragraph in a page",
	Long: `Analyze reads an HTML page (stdin when no file or "-" is given), splits
it into paragraphs and sends them through the scheduler. When nothing
succeeds the assistant switches to on-demand mode and asks for the
remaining paragraphs one at a time. Paragraphs that still could not be
analyzed are tagged with the built-in word lists.

Examples:
  ela analyze article.html
  curl -s https://example.com | ela analyze --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

// recordingSource remembers the units it hands out
type recordingSource struct {
	core.PageSource
	units []core.WorkUnit
}

func (s *recordingSource) ExtractWorkUnits(ctx context.Context) ([]core.WorkUnit, error) {
	units, err := s.PageSource.ExtractWorkUnits(ctx)
	s.units = units
	return units, err
}

type unitReport struct {
	ID       string               `json:"id"`
	Text     string               `json:"text"`
	Analysis *core.AnalysisResult `json:"analysis"`
	Fallback bool                 `json:"fallback,omitempty"`
}

type pageReport struct {
	Summary orchestrator.Summary `json:"summary"`
	Mode    string               `json:"mode"`
	Units   []unitReport         `json:"units"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var (
		mu      sync.Mutex
		results = make(map[string]*core.Result)
	)
	callbacks := orchestrator.Callbacks{
		OnResult: func(unitID string, res *core.Result) {
			mu.Lock()
			results[unitID] = res
			mu.Unlock()
		},
		OnNotice: func(message string) {
			fmt.Fprintln(cmd.ErrOrStderr(), message)
		},
	}

	rt, err := newRuntime(callbacks)
	if err != nil {
		return err
	}
	defer rt.Close()

	doc, err := page.NewSource(in, rt.Logger)
	if err != nil {
		return err
	}
	source := &recordingSource{PageSource: doc}

	sum, err := rt.Orchestrator.AnalyzePage(cmd.Context(), source)
	if err != nil {
		return describeError(err)
	}
	rt.Logger.Debug("Page analyzed",
		zap.String("session", sum.SessionID),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("abandoned", sum.Abandoned),
		zap.String("reason", string(sum.Reason)),
		zap.Duration("duration", sum.Duration))

	mode := rt.Orchestrator.Mode()
	report := pageReport{Summary: sum, Mode: mode.String()}
	mu.Lock()
	report.Units = buildUnitReports(cmd.Context(), rt.Orchestrator, source.units, results,
		mode == orchestrator.ModeOnDemand, rt.Logger)
	mu.Unlock()

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

// unitAnalyzer analyzes a single unit on demand
type unitAnalyzer interface {
	AnalyzeUnit(ctx context.Context, unit core.WorkUnit) (*core.Result, error)
}

// buildUnitReports pairs every unit with its analysis. In on-demand mode a
// unit the session did not analyze is requested again on its own; whatever
// still has no analysis is tagged with the word lists. On-demand requests
// stop after a failure that would fail every unit.
func buildUnitReports(ctx context.Context, analyzer unitAnalyzer, units []core.WorkUnit,
	results map[string]*core.Result, onDemand bool, logger *zap.Logger) []unitReport {
	reports := make([]unitReport, 0, len(units))
	for _, unit := range units {
		ur := unitReport{ID: unit.ID, Text: unit.Text}

		res := results[unit.ID]
		if (res == nil || res.Analysis == nil) && onDemand {
			var err error
			res, err = analyzer.AnalyzeUnit(ctx, unit)
			if err != nil {
				logger.Debug("On-demand analysis failed", zap.String("unit", unit.ID), zap.Error(err))
				switch core.KindOf(err) {
				case core.Unauthorized, core.ChannelClosed:
					onDemand = false
				}
				if ctx.Err() != nil {
					onDemand = false
				}
			}
		}

		if res != nil && res.Analysis != nil {
			ur.Analysis = res.Analysis
		} else {
			ur.Analysis = guessAnalysis(unit.Text)
			ur.Fallback = true
		}
		reports = append(reports, ur)
	}
	return reports
}

// guessAnalysis tags each English word with the built-in word lists
func guessAnalysis(text string) *core.AnalysisResult {
	a := &core.AnalysisResult{Words: []core.WordAnalysis{}, Phrases: []core.PhraseAnalysis{}}
	seen := make(map[string]bool)
	for _, field := range strings.Fields(text) {
		w := strings.ToLower(strings.Trim(field, ".,;:!?\"'()[]"))
		if !lexicon.IsEnglishWord(w) || seen[w] {
			continue
		}
		seen[w] = true
		a.Words = append(a.Words, core.WordAnalysis{Word: w, PartOfSpeech: lexicon.GuessPartOfSpeech(w)})
	}
	return a
}

func printReport(w io.Writer, report pageReport) {
	for _, unit := range report.Units {
		marker := ""
		if unit.Fallback {
			marker = " (word lists)"
		}
		fmt.Fprintf(w, "[%s]%s %s\n", unit.ID, marker, unit.Text)
		for _, word := range unit.Analysis.Words {
			fmt.Fprintf(w, "  %-16s %s", word.Word, lexicon.LocalizePartOfSpeech(word.PartOfSpeech))
			if len(word.Meanings) > 0 {
				fmt.Fprintf(w, "  %s", strings.Join(word.Meanings, ", "))
			}
			fmt.Fprintln(w)
		}
		for _, phrase := range unit.Analysis.Phrases {
			fmt.Fprintf(w, "  %-16s [%s] %s\n", phrase.Phrase, phrase.Type, phrase.Meaning)
		}
	}

	s := report.Summary
	fmt.Fprintf(w, "\n%d/%d paragraphs analyzed (%d failed, %d abandoned, %s, mode %s)\n",
		s.Succeeded, s.Total, s.Failed, s.Abandoned, s.Reason, report.Mode)
}
