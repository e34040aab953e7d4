package core

import (
	"time"
)

// WorkUnit is one chunk of page text (a paragraph or a single word) submitted for analysis
type WorkUnit struct {
	ID        string
	Text      string
	SourceRef any
}

// ResultKind tags the variant carried by a Result
type ResultKind string

const (
	KindDictionary  ResultKind = "dictionary"
	KindTranslation ResultKind = "translation"
	KindAnalysis    ResultKind = "analysis"
)

// Result is the tagged union produced by the remote side. Exactly one of the
// variant pointers is set, matching Kind.
type Result struct {
	Kind        ResultKind            `json:"kind"`
	Definition  *DictionaryDefinition `json:"definition,omitempty"`
	Translation *Translation          `json:"translation,omitempty"`
	Analysis    *AnalysisResult       `json:"analysis,omitempty"`
}

// DictionaryDefinition is an English-English dictionary entry.
// A dictionary Result with a nil Definition means the word is unknown.
type DictionaryDefinition struct {
	Word     string    `json:"word"`
	Phonetic string    `json:"phonetic,omitempty"`
	Meanings []Meaning `json:"meanings"`
}

// Meaning groups definitions under one part of speech
type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
}

// Definition is a single sense with an optional usage example
type Definition struct {
	Definition string `json:"definition"`
	Example    string `json:"example,omitempty"`
}

// Translation is a translated paragraph
type Translation struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Method string `json:"method"`
}

// Translation methods
const (
	MethodLLM    = "llm"
	MethodSimple = "simple"
)

// WordAnalysis is the part-of-speech annotation of one word
type WordAnalysis struct {
	Word         string   `json:"word"`
	PartOfSpeech string   `json:"pos"`
	Meanings     []string `json:"meanings,omitempty"`
	Examples     []string `json:"examples,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`
}

// PhraseAnalysis is a multi-word expression found in a paragraph
type PhraseAnalysis struct {
	Phrase  string `json:"phrase"`
	Type    string `json:"type"`
	Meaning string `json:"meaning,omitempty"`
}

// AnalysisResult is the structured output of paragraph analysis.
// Fixed and Dropped count items normalized or discarded during validation.
type AnalysisResult struct {
	Words   []WordAnalysis   `json:"words"`
	Phrases []PhraseAnalysis `json:"phrases"`
	Fixed   int              `json:"fixed,omitempty"`
	Dropped int              `json:"dropped,omitempty"`
}

// NewDefinitionResult wraps a dictionary definition
func NewDefinitionResult(d *DictionaryDefinition) *Result {
	return &Result{Kind: KindDictionary, Definition: d}
}

// NewTranslationResult wraps a translation
func NewTranslationResult(t *Translation) *Result {
	return &Result{Kind: KindTranslation, Translation: t}
}

// NewAnalysisResult wraps an analysis
func NewAnalysisResult(a *AnalysisResult) *Result {
	return &Result{Kind: KindAnalysis, Analysis: a}
}

// EmptyAnalysis returns the well-formed empty analysis used when the model output
// cannot be recovered.
func EmptyAnalysis() *Result {
	return NewAnalysisResult(&AnalysisResult{
		Words:   []WordAnalysis{},
		Phrases: []PhraseAnalysis{},
	})
}

// CacheEntry is a stored result. A nil Value is a cached negative result.
type CacheEntry struct {
	Key        string
	Value      *Result
	InsertedAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry has a TTL that has passed at now
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Settings are the user feature flags read at session start
type Settings struct {
	POSTagging  bool
	Dictionary  bool
	Translation bool
	APIKey      string
}
