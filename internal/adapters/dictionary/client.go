// Package dictionary fetches English-English entries from a
// dictionaryapi.dev compatible endpoint.
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"go.uber.org/zap"
)

const (
	op          = "dictionary"
	maxBodySize = 1 << 20
)

// DefaultBaseURL is the free dictionary API
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

type entry struct {
	Word      string `json:"word"`
	Phonetic  string `json:"phonetic"`
	Phonetics []struct {
		Text string `json:"text"`
	} `json:"phonetics"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
			Example    string `json:"example"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Client implements core.DictionaryClient over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a dictionary client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Define returns the first entry for word, or nil when the API has none
func (c *Client) Define(ctx context.Context, word string) (*core.DictionaryDefinition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dictionary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}
		return nil, fmt.Errorf("dictionary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("Word not in dictionary", zap.String("word", word))
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.StatusError(op, resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}

	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, core.NewRemoteError(core.MalformedResponse, op, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0].definition(), nil
}

func (e entry) definition() *core.DictionaryDefinition {
	def := &core.DictionaryDefinition{
		Word:     e.Word,
		Phonetic: e.Phonetic,
		Meanings: make([]core.Meaning, 0, len(e.Meanings)),
	}
	if def.Phonetic == "" {
		for _, p := range e.Phonetics {
			if p.Text != "" {
				def.Phonetic = p.Text
				break
			}
		}
	}
	for _, m := range e.Meanings {
		meaning := core.Meaning{
			PartOfSpeech: m.PartOfSpeech,
			Definitions:  make([]core.Definition, 0, len(m.Definitions)),
		}
		for _, d := range m.Definitions {
			meaning.Definitions = append(meaning.Definitions, core.Definition{Definition: d.Definition, Example: d.Example})
		}
		def.Meanings = append(def.Meanings, meaning)
	}
	return def
}
