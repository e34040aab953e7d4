package skiplist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker tells whether a word is excluded from dictionary lookups
type Checker struct {
	words  map[string]struct{}
	logger *zap.Logger
}

// NewChecker creates a new skip list checker
func NewChecker(words []string, logger *zap.Logger) *Checker {
	// Normalize words (lowercase)
	normalized := make(map[string]struct{}, len(words))
	for _, word := range words {
		w := strings.ToLower(strings.TrimSpace(word))
		if w != "" {
			normalized[w] = struct{}{}
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized skip list", zap.Int("words", len(normalized)))
	}

	return &Checker{
		words:  normalized,
		logger: logger,
	}
}

// IsSkipped checks if the word is in the skip list
func (c *Checker) IsSkipped(word string) bool {
	if c == nil || len(c.words) == 0 {
		return false
	}

	w := strings.ToLower(strings.TrimSpace(word))
	if _, ok := c.words[w]; ok {
		if c.logger != nil {
			c.logger.Debug("Word is skipped", zap.String("word", w))
		}
		return true
	}

	return false
}
