package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
	strict *bluemonday.Policy
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
		strict: bluemonday.StrictPolicy(),
	}
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	// If no limit or text is already within limits, return as is
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	// First truncate to the byte limit
	truncated := text[:maxSize]

	// Drop a partial trailing rune
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}

// StripMarkup removes any HTML the model or dictionary put in a string and
// unescapes the entities the policy leaves behind.
func (tp *TextProcessor) StripMarkup(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(html.UnescapeString(tp.strict.Sanitize(text)))
}

// NormalizeParagraph applies NFC, trims and collapses internal whitespace
func (tp *TextProcessor) NormalizeParagraph(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(tp.SanitizeUTF8(text))), " ")
}

// NormalizeWord is NormalizeParagraph plus Unicode case folding.
// Casers carry state, so one is built per call.
func (tp *TextProcessor) NormalizeWord(word string) string {
	return cases.Fold().String(tp.NormalizeParagraph(word))
}

// Fingerprint returns a namespaced SHA-256 key over already normalized text
func Fingerprint(namespace, normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
