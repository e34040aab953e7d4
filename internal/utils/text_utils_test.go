package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateTextKeepsValidUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	text := "héllo wörld"
	out := tp.TruncateText(text, 2)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "h", out)
	assert.Equal(t, text, tp.TruncateText(text, 0))
	assert.Equal(t, text, tp.TruncateText(text, 100))
}

func TestSanitizeUTF8DropsInvalidBytes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	out := tp.SanitizeUTF8("ok\xffok")

	assert.Equal(t, "okok", out)
}

func TestNormalizeWordFoldsCase(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "run", tp.NormalizeWord("  RUN "))
	assert.Equal(t, tp.NormalizeWord("Straße"), tp.NormalizeWord("STRASSE"))
}

func TestNormalizeParagraphCollapsesWhitespace(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	out := tp.NormalizeParagraph("  The cat\n\n sat\ton the mat.  ")

	assert.Equal(t, "The cat sat on the mat.", out)
}

func TestFingerprintIsStableAndNamespaced(t *testing.T) {
	a := Fingerprint("word", "run")
	b := Fingerprint("word", "run")
	c := Fingerprint("analysis", "run")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "word:"))
	assert.Len(t, strings.TrimPrefix(a, "word:"), 64)
}

func TestStripMarkup(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "bold text", tp.StripMarkup("<b>bold</b> text"))
	assert.Equal(t, "Tom & Jerry", tp.StripMarkup("Tom &amp; Jerry"))
	assert.Equal(t, "plain", tp.StripMarkup(" plain "))
}
