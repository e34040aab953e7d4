// Package page turns an HTML document into the ordered work units of one
// analysis session.
package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/lexicon"
	"go.uber.org/zap"
)

const (
	blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote"
	minBlockText  = 10
)

// ErrNotEnglish is returned for documents that do not read as English prose
var ErrNotEnglish = errors.New("page is not English")

// Block locates a work unit in the source document
type Block struct {
	Tag   string
	Index int
}

// Source implements core.PageSource over a parsed HTML document
type Source struct {
	doc    *goquery.Document
	logger *zap.Logger
}

// NewSource parses an HTML document
func NewSource(r io.Reader, logger *zap.Logger) (*Source, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, template, head, nav, footer").Remove()

	return &Source{doc: doc, logger: logger}, nil
}

// ExtractWorkUnits returns the innermost text blocks in document order.
// Blocks shorter than ten characters are skipped.
func (s *Source) ExtractWorkUnits(ctx context.Context) ([]core.WorkUnit, error) {
	body := s.doc.Find("body")
	if body.Length() == 0 {
		body = s.doc.Selection
	}
	if !lexicon.DetectEnglish(body.Text()) {
		return nil, ErrNotEnglish
	}

	var units []core.WorkUnit
	var err error
	s.doc.Find(blockSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if sel.Find(blockSelector).Length() > 0 {
			return true
		}
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if len(text) < minBlockText {
			return true
		}
		units = append(units, core.WorkUnit{
			ID:        fmt.Sprintf("p-%d", len(units)),
			Text:      text,
			SourceRef: Block{Tag: goquery.NodeName(sel), Index: i},
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Extracted work units", zap.Int("units", len(units)))
	return units, nil
}
