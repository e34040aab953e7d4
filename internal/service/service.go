// Package service executes typed requests on the side that owns outbound
// network access: the dictionary API and the language model.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/lexicon"
	"github.com/mikey/ela-assistant/internal/repair"
	"github.com/mikey/ela-assistant/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxMeanings    = 2
	maxDefinitions = 2

	// concurrent model calls while translating one dictionary entry
	maxParallelTranslations = 4
)

// ErrNoModel is returned for requests that need a language model when none is configured
var ErrNoModel = errors.New("no language model configured")

// Options tune the request service
type Options struct {
	// TranslateDefinitions renders dictionary entries in Japanese
	TranslateDefinitions bool
	// TranslationTimeout bounds translating one entry. It is further capped
	// at three quarters of the time left on the request.
	TranslationTimeout time.Duration
	// MaxInputSize caps the bytes of page text sent to the model
	MaxInputSize int
	MaxTokens    int
}

// Service implements core.Handler
type Service struct {
	llm    core.LLMClient
	dict   core.DictionaryClient
	text   *utils.TextProcessor
	logger *zap.Logger
	opts   Options
}

// New creates a request service. llm may be nil, in which case translation
// uses the word table and analysis fails as unauthorized.
func New(llm core.LLMClient, dict core.DictionaryClient, text *utils.TextProcessor, logger *zap.Logger, opts Options) *Service {
	return &Service{
		llm:    llm,
		dict:   dict,
		text:   text,
		logger: logger,
		opts:   opts,
	}
}

// Handle executes one request
func (s *Service) Handle(ctx context.Context, req core.Request) (*core.Result, error) {
	switch r := req.(type) {
	case core.LookupWordRequest:
		def, err := s.LookupWord(ctx, r.Word)
		if err != nil {
			return nil, err
		}
		return core.NewDefinitionResult(def), nil
	case core.TranslateTextRequest:
		t, err := s.TranslateText(ctx, r.Text)
		if err != nil {
			return nil, err
		}
		return core.NewTranslationResult(t), nil
	case core.AnalyzeParagraphRequest:
		a, err := s.AnalyzeParagraph(ctx, r.Text)
		if err != nil {
			return nil, err
		}
		return core.NewAnalysisResult(a), nil
	}
	return nil, fmt.Errorf("unsupported request %T", req)
}

// LookupWord fetches and optionally translates a dictionary entry.
// A nil definition with a nil error means the word is unknown.
func (s *Service) LookupWord(ctx context.Context, word string) (*core.DictionaryDefinition, error) {
	def, err := s.dict.Define(ctx, word)
	if err != nil {
		return nil, err
	}
	if def == nil {
		s.logger.Debug("No dictionary entry", zap.String("word", word))
		return nil, nil
	}

	def = s.trimDefinition(def)
	if s.opts.TranslateDefinitions && s.llm != nil {
		s.translateDefinition(ctx, def)
	}
	return def, nil
}

func (s *Service) trimDefinition(def *core.DictionaryDefinition) *core.DictionaryDefinition {
	out := &core.DictionaryDefinition{
		Word:     s.text.StripMarkup(def.Word),
		Phonetic: s.text.StripMarkup(def.Phonetic),
	}

	meanings := def.Meanings
	if len(meanings) > maxMeanings {
		meanings = meanings[:maxMeanings]
	}
	for _, m := range meanings {
		defs := m.Definitions
		if len(defs) > maxDefinitions {
			defs = defs[:maxDefinitions]
		}
		meaning := core.Meaning{PartOfSpeech: m.PartOfSpeech, Definitions: make([]core.Definition, 0, len(defs))}
		for _, d := range defs {
			meaning.Definitions = append(meaning.Definitions, core.Definition{
				Definition: s.text.StripMarkup(d.Definition),
				Example:    s.text.StripMarkup(d.Example),
			})
		}
		out.Meanings = append(out.Meanings, meaning)
	}
	return out
}

// translateDefinition rewrites definitions and examples in place; any text
// that fails to translate in time stays in English.
func (s *Service) translateDefinition(ctx context.Context, def *core.DictionaryDefinition) {
	ctx, cancel := s.translationContext(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(maxParallelTranslations)
	for i := range def.Meanings {
		m := &def.Meanings[i]
		m.PartOfSpeech = lexicon.LocalizePartOfSpeech(m.PartOfSpeech)
		for j := range m.Definitions {
			d := &m.Definitions[j]
			g.Go(func() error {
				d.Definition = s.translateOrKeep(ctx, d.Definition)
				return nil
			})
			if d.Example != "" {
				g.Go(func() error {
					d.Example = s.translateOrKeep(ctx, d.Example)
					return nil
				})
			}
		}
	}
	_ = g.Wait()
}

// translationContext leaves a quarter of the request deadline for returning
// the entry untranslated
func (s *Service) translationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	budget := s.opts.TranslationTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline) * 3 / 4; budget <= 0 || remaining < budget {
			budget = remaining
		}
	}
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}

func (s *Service) translateOrKeep(ctx context.Context, text string) string {
	t, err := s.completeTranslation(ctx, text)
	if err != nil {
		s.logger.Debug("Keeping untranslated definition", zap.Error(err))
		return text
	}
	return t
}

// TranslateText translates a paragraph into Japanese. Failures the taxonomy
// cannot classify fall back to the word table; classified failures are
// returned so the caller can retry.
func (s *Service) TranslateText(ctx context.Context, text string) (*core.Translation, error) {
	source := strings.TrimSpace(text)
	if s.llm == nil {
		return s.simpleTranslation(source), nil
	}

	out, err := s.completeTranslation(ctx, source)
	if err != nil {
		if core.KindOf(err) != core.Unknown {
			return nil, err
		}
		s.logger.Warn("Model translation failed, using word table", zap.Error(err))
		return s.simpleTranslation(source), nil
	}
	return &core.Translation{Source: source, Text: out, Method: core.MethodLLM}, nil
}

func (s *Service) simpleTranslation(source string) *core.Translation {
	return &core.Translation{Source: source, Text: lexicon.SimpleTranslate(source), Method: core.MethodSimple}
}

func (s *Service) completeTranslation(ctx context.Context, text string) (string, error) {
	if s.llm == nil {
		return "", ErrNoModel
	}
	out, err := s.llm.Complete(ctx, core.Prompt{
		System:    translationSystemPrompt,
		User:      fmt.Sprintf(translationUserPrompt, s.text.ProcessText(text, s.opts.MaxInputSize)),
		MaxTokens: s.opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	out = s.text.StripMarkup(out)
	if out == "" {
		return "", core.NewRemoteError(core.MalformedResponse, string(core.OpTranslateText), errors.New("empty translation"))
	}
	return out, nil
}

// AnalyzeParagraph asks the model for part-of-speech annotations and repairs
// the reply into a validated AnalysisResult.
func (s *Service) AnalyzeParagraph(ctx context.Context, text string) (*core.AnalysisResult, error) {
	if s.llm == nil {
		return nil, core.NewRemoteError(core.Unauthorized, string(core.OpAnalyzeParagraph), ErrNoModel)
	}

	raw, err := s.llm.Complete(ctx, core.Prompt{
		System:    analysisSystemPrompt,
		User:      fmt.Sprintf(analysisUserPrompt, s.text.ProcessText(text, s.opts.MaxInputSize)),
		MaxTokens: s.opts.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	result, err := repair.ParseAnalysis(raw)
	if err != nil {
		s.logger.Debug("Unrecoverable analysis reply", zap.Error(err), zap.Int("reply_size", len(raw)))
		return nil, err
	}

	for i := range result.Words {
		w := &result.Words[i]
		for j := range w.Meanings {
			w.Meanings[j] = s.text.StripMarkup(w.Meanings[j])
		}
		for j := range w.Examples {
			w.Examples[j] = s.text.StripMarkup(w.Examples[j])
		}
	}
	for i := range result.Phrases {
		result.Phrases[i].Meaning = s.text.StripMarkup(result.Phrases[i].Meaning)
	}

	if result.Fixed > 0 || result.Dropped > 0 {
		s.logger.Debug("Analysis repaired",
			zap.Int("fixed", result.Fixed),
			zap.Int("dropped", result.Dropped),
			zap.Int("words", len(result.Words)))
	}
	return result, nil
}
