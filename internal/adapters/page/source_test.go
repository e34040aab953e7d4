package page

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const article = `<html><head><title>t</title><script>var x = "the and of";</script></head>
<body>
  <nav><p>Home and the rest of the links</p></nav>
  <h1>The quick brown fox</h1>
  <p>The fox jumps over the lazy dog and runs into the forest.</p>
  <p>Short.</p>
  <ul>
    <li><p>It was a <b>bright</b> cold day in April.</p></li>
    <li>And the clocks were striking thirteen.</li>
  </ul>
  <blockquote>Stay hungry, stay foolish, and keep reading.</blockquote>
</body></html>`

func TestExtractWorkUnits(t *testing.T) {
	src, err := NewSource(strings.NewReader(article), zap.NewNop())
	require.NoError(t, err)

	units, err := src.ExtractWorkUnits(context.Background())
	require.NoError(t, err)

	texts := make([]string, 0, len(units))
	for _, u := range units {
		texts = append(texts, u.Text)
	}
	assert.Equal(t, []string{
		"The quick brown fox",
		"The fox jumps over the lazy dog and runs into the forest.",
		"It was a bright cold day in April.",
		"And the clocks were striking thirteen.",
		"Stay hungry, stay foolish, and keep reading.",
	}, texts)

	assert.Equal(t, "p-0", units[0].ID)
	assert.Equal(t, "p-4", units[4].ID)
	assert.Equal(t, "h1", units[0].SourceRef.(Block).Tag)
	assert.Equal(t, "p", units[2].SourceRef.(Block).Tag)
}

func TestExtractWorkUnitsNotEnglish(t *testing.T) {
	src, err := NewSource(strings.NewReader(`<body><p>これは日本語の文章です。英語ではありません。</p></body>`), zap.NewNop())
	require.NoError(t, err)

	_, err = src.ExtractWorkUnits(context.Background())
	assert.ErrorIs(t, err, ErrNotEnglish)
}

func TestExtractWorkUnitsCancelled(t *testing.T) {
	src, err := NewSource(strings.NewReader(article), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.ExtractWorkUnits(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
