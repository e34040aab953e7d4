package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/transport"
	"github.com/mikey/ela-assistant/internal/utils"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, prompt core.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockDictionary struct {
	mock.Mock
}

func (m *mockDictionary) Define(ctx context.Context, word string) (*core.DictionaryDefinition, error) {
	args := m.Called(ctx, word)
	def, _ := args.Get(0).(*core.DictionaryDefinition)
	return def, args.Error(1)
}

func newService(llm core.LLMClient, dict core.DictionaryClient, translate bool) *Service {
	logger := zap.NewNop()
	return New(llm, dict, utils.NewTextProcessor(logger), logger, Options{
		TranslateDefinitions: translate,
		MaxInputSize:         4096,
		MaxTokens:            500,
	})
}

func userPrompt(text string) any {
	return mock.MatchedBy(func(p core.Prompt) bool { return p.User == text })
}

func runDefinition() *core.DictionaryDefinition {
	return &core.DictionaryDefinition{
		Word:     "run",
		Phonetic: "/rʌn/",
		Meanings: []core.Meaning{
			{PartOfSpeech: "verb", Definitions: []core.Definition{
				{Definition: "To move <b>swiftly</b>.", Example: "I run every day."},
				{Definition: "To manage."},
				{Definition: "To flow."},
			}},
			{PartOfSpeech: "noun", Definitions: []core.Definition{{Definition: "An act of running."}}},
			{PartOfSpeech: "adjective", Definitions: []core.Definition{{Definition: "Melted."}}},
		},
	}
}

func TestLookupWordTrimsAndSanitizes(t *testing.T) {
	dict := new(mockDictionary)
	dict.On("Define", mock.Anything, "run").Return(runDefinition(), nil)

	def, err := newService(nil, dict, true).LookupWord(context.Background(), "run")

	require.NoError(t, err)
	require.Len(t, def.Meanings, 2)
	assert.Len(t, def.Meanings[0].Definitions, 2)
	assert.Equal(t, "To move swiftly.", def.Meanings[0].Definitions[0].Definition)
	assert.Equal(t, "verb", def.Meanings[0].PartOfSpeech)
	dict.AssertExpectations(t)
}

func TestLookupWordTranslatesDefinitions(t *testing.T) {
	dict := new(mockDictionary)
	dict.On("Define", mock.Anything, "run").Return(runDefinition(), nil)

	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, userPrompt("以下の英文を日本語に翻訳してください：\n\nTo move swiftly.")).Return("素早く動くこと。", nil)
	llm.On("Complete", mock.Anything, userPrompt("以下の英文を日本語に翻訳してください：\n\nTo manage.")).
		Return("", core.StatusError("translate_text", http.StatusServiceUnavailable, nil))
	llm.On("Complete", mock.Anything, mock.Anything).Return("翻訳", nil)

	def, err := newService(llm, dict, true).LookupWord(context.Background(), "run")

	require.NoError(t, err)
	assert.Equal(t, "動詞", def.Meanings[0].PartOfSpeech)
	assert.Equal(t, "名詞", def.Meanings[1].PartOfSpeech)
	assert.Equal(t, "素早く動くこと。", def.Meanings[0].Definitions[0].Definition)
	assert.Equal(t, "翻訳", def.Meanings[0].Definitions[0].Example)
	assert.Equal(t, "To manage.", def.Meanings[0].Definitions[1].Definition)
}

// slowLLM answers every prompt after delay, or fails when ctx ends first
type slowLLM struct {
	delay time.Duration
	calls atomic.Int32
}

func (l *slowLLM) Complete(ctx context.Context, prompt core.Prompt) (string, error) {
	l.calls.Add(1)
	select {
	case <-time.After(l.delay):
		return "訳", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func fullDefinition() *core.DictionaryDefinition {
	return &core.DictionaryDefinition{
		Word: "run",
		Meanings: []core.Meaning{
			{PartOfSpeech: "verb", Definitions: []core.Definition{
				{Definition: "To move swiftly.", Example: "I run every day."},
				{Definition: "To manage.", Example: "She runs a shop."},
			}},
			{PartOfSpeech: "noun", Definitions: []core.Definition{
				{Definition: "An act of running.", Example: "A morning run."},
				{Definition: "A series.", Example: "A run of luck."},
			}},
		},
	}
}

func TestLookupWordTranslationFitsRequestBudget(t *testing.T) {
	dict := new(mockDictionary)
	dict.On("Define", mock.Anything, "run").Return(fullDefinition(), nil)
	llm := &slowLLM{delay: 150 * time.Millisecond}

	local := transport.NewLocal(newService(llm, dict, true), zap.NewNop())
	res, err := local.Send(context.Background(), core.LookupWordRequest{Word: "run"}, time.Second)

	require.NoError(t, err)
	require.NotNil(t, res.Definition)
	assert.Equal(t, int32(8), llm.calls.Load())
	for _, m := range res.Definition.Meanings {
		for _, d := range m.Definitions {
			assert.Equal(t, "訳", d.Definition)
			assert.Equal(t, "訳", d.Example)
		}
	}
}

func TestLookupWordKeepsEnglishWhenModelIsTooSlow(t *testing.T) {
	dict := new(mockDictionary)
	dict.On("Define", mock.Anything, "run").Return(fullDefinition(), nil)
	llm := &slowLLM{delay: time.Minute}

	local := transport.NewLocal(newService(llm, dict, true), zap.NewNop())
	start := time.Now()
	res, err := local.Send(context.Background(), core.LookupWordRequest{Word: "run"}, time.Second)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	require.NotNil(t, res.Definition)
	assert.Equal(t, "名詞", res.Definition.Meanings[1].PartOfSpeech)
	assert.Equal(t, "To move swiftly.", res.Definition.Meanings[0].Definitions[0].Definition)
	assert.Equal(t, "A run of luck.", res.Definition.Meanings[1].Definitions[1].Example)
}

func TestLookupWordUnknown(t *testing.T) {
	dict := new(mockDictionary)
	dict.On("Define", mock.Anything, "qwzx").Return(nil, nil)

	res, err := newService(nil, dict, true).Handle(context.Background(), core.LookupWordRequest{Word: "qwzx"})

	require.NoError(t, err)
	assert.Equal(t, core.KindDictionary, res.Kind)
	assert.Nil(t, res.Definition)
}

func TestLookupWordError(t *testing.T) {
	dict := new(mockDictionary)
	dict.On("Define", mock.Anything, "run").Return(nil, core.StatusError("lookup_word", http.StatusTooManyRequests, nil))

	_, err := newService(nil, dict, false).LookupWord(context.Background(), "run")

	assert.Equal(t, core.RateLimited, core.KindOf(err))
}

func TestTranslateText(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.Anything).Return("  こんにちは、世界。 ", nil)

	res, err := newService(llm, nil, false).Handle(context.Background(), core.TranslateTextRequest{Text: " Hello, world. "})

	require.NoError(t, err)
	assert.Equal(t, &core.Translation{Source: "Hello, world.", Text: "こんにちは、世界。", Method: core.MethodLLM}, res.Translation)
}

func TestTranslateTextFallsBackOnUnknownFailure(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model exploded"))

	tr, err := newService(llm, nil, false).TranslateText(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, core.MethodSimple, tr.Method)
	assert.Equal(t, "こんにちは", tr.Text)
}

func TestTranslateTextReturnsClassifiedFailure(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.Anything).Return("", core.StatusError("translate_text", http.StatusTooManyRequests, nil))

	_, err := newService(llm, nil, false).TranslateText(context.Background(), "hello")

	assert.Equal(t, core.RateLimited, core.KindOf(err))
}

func TestTranslateTextWithoutModel(t *testing.T) {
	tr, err := newService(nil, nil, false).TranslateText(context.Background(), "Good")

	require.NoError(t, err)
	assert.Equal(t, "良い", tr.Text)
	assert.Equal(t, core.MethodSimple, tr.Method)
}

func TestAnalyzeParagraphRepairsReply(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(p core.Prompt) bool { return p.JSON })).
		Return(`Sure! {"words":[{"word":"cat","pos":"n","meanings":["<i>猫</i>"]},{"word":"sat","pos":"verb"`, nil)

	res, err := newService(llm, nil, false).Handle(context.Background(), core.AnalyzeParagraphRequest{Text: "The cat sat."})

	require.NoError(t, err)
	a := res.Analysis
	require.Len(t, a.Words, 2)
	assert.Equal(t, "noun", a.Words[0].PartOfSpeech)
	assert.Equal(t, []string{"猫"}, a.Words[0].Meanings)
	assert.Equal(t, "verb", a.Words[1].PartOfSpeech)
	assert.Equal(t, 1, a.Fixed)
	assert.Empty(t, a.Phrases)
}

func TestAnalyzeParagraphMalformed(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.Anything).Return("I cannot help with that.", nil)

	_, err := newService(llm, nil, false).AnalyzeParagraph(context.Background(), "The cat sat.")

	assert.Equal(t, core.MalformedResponse, core.KindOf(err))
}

func TestAnalyzeParagraphWithoutModel(t *testing.T) {
	_, err := newService(nil, nil, false).AnalyzeParagraph(context.Background(), "The cat sat.")

	assert.Equal(t, core.Unauthorized, core.KindOf(err))
	assert.ErrorIs(t, err, ErrNoModel)
}
