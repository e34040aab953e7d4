// Package lexicon holds the static word lists behind the offline fallbacks:
// the heuristic part-of-speech guesser, English detection, and the small
// word table used when no translation model is reachable.
package lexicon

import (
	"regexp"
	"strings"
)

// Recognized part-of-speech tags
const (
	Noun         = "noun"
	Verb         = "verb"
	Adjective    = "adjective"
	Adverb       = "adverb"
	Preposition  = "preposition"
	Pronoun      = "pronoun"
	Conjunction  = "conjunction"
	Determiner   = "determiner"
	Interjection = "interjection"
)

var (
	englishWord = regexp.MustCompile(`^[a-z]+$`)

	prepositions = set("in", "on", "at", "by", "for", "with", "from", "to", "of", "about", "under", "over")
	pronouns     = set("i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us", "them")
	conjunctions = set("and", "or", "but", "so", "because", "although", "while")
	determiners  = set("the", "a", "an", "this", "that", "these", "those", "my", "your", "his", "her", "its", "our", "their")

	commonWords = set("the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by", "from",
		"is", "are", "was", "were", "be", "been", "have", "has", "had", "do", "does", "did", "will",
		"would", "could", "should", "this", "that", "these", "those", "a", "an")

	partOfSpeechJA = map[string]string{
		Noun:         "名詞",
		Verb:         "動詞",
		Adjective:    "形容詞",
		Adverb:       "副詞",
		Preposition:  "前置詞",
		Pronoun:      "代名詞",
		Conjunction:  "接続詞",
		Interjection: "感嘆詞",
		Determiner:   "限定詞",
	}

	simpleTranslations = map[string]string{
		"hello":     "こんにちは",
		"world":     "世界",
		"good":      "良い",
		"bad":       "悪い",
		"yes":       "はい",
		"no":        "いいえ",
		"thank you": "ありがとう",
		"please":    "お願いします",
		"sorry":     "すみません",
		"excuse me": "すみません",
		"and":       "と",
		"or":        "または",
		"but":       "しかし",
		"is":        "です",
		"are":       "です",
		"was":       "でした",
		"were":      "でした",
	}
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func has(m map[string]struct{}, w string) bool {
	_, ok := m[w]
	return ok
}

// Tags returns every recognized part-of-speech tag
func Tags() []string {
	return []string{Noun, Verb, Adjective, Adverb, Preposition, Pronoun, Conjunction, Determiner, Interjection}
}

// IsEnglishWord reports whether the token is a plain ASCII word longer than one letter
func IsEnglishWord(word string) bool {
	w := strings.ToLower(strings.TrimSpace(word))
	return len(w) > 1 && englishWord.MatchString(w)
}

// GuessPartOfSpeech is the last-resort tagger used when no model result is available.
// Word lists win over suffix rules; anything unmatched is a noun.
func GuessPartOfSpeech(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))

	switch {
	case has(prepositions, w):
		return Preposition
	case has(pronouns, w):
		return Pronoun
	case has(conjunctions, w):
		return Conjunction
	case has(determiners, w):
		return Determiner
	case strings.HasSuffix(w, "ly"):
		return Adverb
	case strings.HasSuffix(w, "ing"), strings.HasSuffix(w, "ed"), strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		return Verb
	}
	return Noun
}

// DetectEnglish reports whether text looks like English prose: at least ten
// words, with three or more common English words among the first fifty.
func DetectEnglish(text string) bool {
	words := strings.Fields(text)
	if len(words) < 10 {
		return false
	}
	if len(words) > 50 {
		words = words[:50]
	}

	count := 0
	for _, w := range words {
		if has(commonWords, lettersOnly(w)) {
			count++
		}
	}
	return count >= 3
}

func lettersOnly(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(w) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LocalizePartOfSpeech returns the Japanese name of a tag, or the tag itself
func LocalizePartOfSpeech(pos string) string {
	if name, ok := partOfSpeechJA[strings.ToLower(pos)]; ok {
		return name
	}
	return pos
}

// SimpleTranslate looks text up in the fallback table
func SimpleTranslate(text string) string {
	if t, ok := simpleTranslations[strings.ToLower(strings.TrimSpace(text))]; ok {
		return t
	}
	return "[翻訳] " + text
}
