package repair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/lexicon"
)

// Phrase types accepted in an analysis
const (
	PhraseIdiom       = "idiom"
	PhrasePhrasalVerb = "phrasal_verb"
	PhraseCollocation = "collocation"
	PhraseExpression  = "expression"
)

// ErrNoObject is returned when the text contains no JSON object at all
var ErrNoObject = errors.New("no JSON object in response")

var posAliases = map[string]string{
	"n":       lexicon.Noun,
	"nn":      lexicon.Noun,
	"v":       lexicon.Verb,
	"vb":      lexicon.Verb,
	"adj":     lexicon.Adjective,
	"jj":      lexicon.Adjective,
	"adv":     lexicon.Adverb,
	"rb":      lexicon.Adverb,
	"prep":    lexicon.Preposition,
	"pron":    lexicon.Pronoun,
	"prp":     lexicon.Pronoun,
	"conj":    lexicon.Conjunction,
	"det":     lexicon.Determiner,
	"dt":      lexicon.Determiner,
	"art":     lexicon.Determiner,
	"article": lexicon.Determiner,
	"interj":  lexicon.Interjection,
	"uh":      lexicon.Interjection,
}

var phraseTypes = map[string]string{
	PhraseIdiom:       PhraseIdiom,
	PhrasePhrasalVerb: PhrasePhrasalVerb,
	"phrasal verb":    PhrasePhrasalVerb,
	"phrasal-verb":    PhrasePhrasalVerb,
	"phrasalverb":     PhrasePhrasalVerb,
	PhraseCollocation: PhraseCollocation,
	PhraseExpression:  PhraseExpression,
}

var validTags = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, t := range lexicon.Tags() {
		m[t] = struct{}{}
	}
	return m
}()

// flexStrings accepts either a JSON string or an array of strings
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "" {
			*f = flexStrings{s}
		}
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(flexStrings, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	*f = out
	return nil
}

type rawWord struct {
	Word         string      `json:"word"`
	POS          string      `json:"pos"`
	PartOfSpeech string      `json:"partOfSpeech"`
	Meanings     flexStrings `json:"meanings"`
	Examples     flexStrings `json:"examples"`
	Confidence   *float64    `json:"confidence"`
}

type rawPhrase struct {
	Phrase  string `json:"phrase"`
	Type    string `json:"type"`
	Meaning string `json:"meaning"`
}

type rawAnalysis struct {
	Words   []rawWord   `json:"words"`
	Phrases []rawPhrase `json:"phrases"`
}

// ParseAnalysis repairs raw model output and decodes it into a validated
// analysis. Failures are MalformedResponse errors.
func ParseAnalysis(raw string) (*core.AnalysisResult, error) {
	if strings.IndexByte(raw, '{') < 0 {
		return nil, core.NewRemoteError(core.MalformedResponse, string(core.OpAnalyzeParagraph), ErrNoObject)
	}

	var payload rawAnalysis
	if err := json.Unmarshal([]byte(Repair(raw)), &payload); err != nil {
		return nil, core.NewRemoteError(core.MalformedResponse, string(core.OpAnalyzeParagraph),
			fmt.Errorf("decode analysis: %w", err))
	}
	return validate(payload.Words, payload.Phrases), nil
}

// Decode is ParseAnalysis that never fails: unrecoverable output becomes the
// empty analysis.
func Decode(raw string) *core.AnalysisResult {
	a, err := ParseAnalysis(raw)
	if err != nil {
		return core.EmptyAnalysis().Analysis
	}
	return a
}

// validate normalizes tags and phrase types, dropping items that cannot be salvaged
func validate(words []rawWord, phrases []rawPhrase) *core.AnalysisResult {
	out := &core.AnalysisResult{
		Words:   make([]core.WordAnalysis, 0, len(words)),
		Phrases: make([]core.PhraseAnalysis, 0, len(phrases)),
	}

	for _, w := range words {
		word, ok := validateWord(w)
		if !ok {
			out.Dropped++
			continue
		}
		if word.fixed {
			out.Fixed++
		}
		out.Words = append(out.Words, word.WordAnalysis)
	}

	for _, p := range phrases {
		text := strings.TrimSpace(p.Phrase)
		typ, fixed, ok := NormalizePhraseType(p.Type)
		if text == "" || !ok {
			out.Dropped++
			continue
		}
		if fixed || text != p.Phrase {
			out.Fixed++
		}
		out.Phrases = append(out.Phrases, core.PhraseAnalysis{
			Phrase:  text,
			Type:    typ,
			Meaning: strings.TrimSpace(p.Meaning),
		})
	}
	return out
}

type checkedWord struct {
	core.WordAnalysis
	fixed bool
}

func validateWord(w rawWord) (checkedWord, bool) {
	text := strings.TrimSpace(w.Word)
	if text == "" {
		return checkedWord{}, false
	}
	rawPOS := w.POS
	if rawPOS == "" {
		rawPOS = w.PartOfSpeech
	}
	pos, fixed, ok := NormalizePartOfSpeech(rawPOS)
	if !ok {
		return checkedWord{}, false
	}
	if text != w.Word || w.POS == "" {
		fixed = true
	}

	cw := checkedWord{
		WordAnalysis: core.WordAnalysis{
			Word:         text,
			PartOfSpeech: pos,
			Meanings:     w.Meanings,
			Examples:     w.Examples,
		},
		fixed: fixed,
	}
	if w.Confidence != nil {
		c := *w.Confidence
		switch {
		case c < 0:
			c, cw.fixed = 0, true
		case c > 1:
			c, cw.fixed = 1, true
		}
		cw.Confidence = c
	}
	return cw, true
}

// NormalizePartOfSpeech maps a tag or a common abbreviation onto a recognized
// tag. fixed reports whether the input needed rewriting.
func NormalizePartOfSpeech(raw string) (pos string, fixed bool, ok bool) {
	p := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ".")))
	if _, known := validTags[p]; known {
		return p, p != raw, true
	}
	if alias, known := posAliases[p]; known {
		return alias, true, true
	}
	return "", false, false
}

// NormalizePhraseType maps a phrase type or a spelling variant onto a recognized type
func NormalizePhraseType(raw string) (typ string, fixed bool, ok bool) {
	t := strings.ToLower(strings.TrimSpace(raw))
	if v, known := phraseTypes[t]; known {
		return v, v != raw, true
	}
	return "", false, false
}
