package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
)

const runEntry = `[{
  "word": "run",
  "phonetics": [{"audio": ""}, {"text": "/ɹʌn/"}],
  "meanings": [
    {"partOfSpeech": "verb", "definitions": [{"definition": "To move swiftly.", "example": "Run!"}]},
    {"partOfSpeech": "noun", "definitions": [{"definition": "An act of running."}]}
  ]
}, {"word": "run", "meanings": []}]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 50*time.Millisecond, zap.NewNop())
}

func TestDefine(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run", r.URL.Path)
		_, _ = w.Write([]byte(runEntry))
	})

	def, err := client.Define(context.Background(), "run")

	require.NoError(t, err)
	assert.Equal(t, "run", def.Word)
	assert.Equal(t, "/ɹʌn/", def.Phonetic)
	require.Len(t, def.Meanings, 2)
	assert.Equal(t, "verb", def.Meanings[0].PartOfSpeech)
	assert.Equal(t, core.Definition{Definition: "To move swiftly.", Example: "Run!"}, def.Meanings[0].Definitions[0])
}

func TestDefineNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"No Definitions Found"}`))
	})

	def, err := client.Define(context.Background(), "qwzx")

	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestDefineErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/garbage":
			_, _ = w.Write([]byte("<html>"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		}
	})

	_, err := client.Define(context.Background(), "busy")
	assert.Equal(t, core.RateLimited, core.KindOf(err))

	_, err = client.Define(context.Background(), "garbage")
	assert.Equal(t, core.MalformedResponse, core.KindOf(err))

	_, err = client.Define(context.Background(), "slow")
	assert.Equal(t, core.Timeout, core.KindOf(err))
}
