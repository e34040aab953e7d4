package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIClient(openai.NewClientWithConfig(cfg), "gpt-4.1-nano", 500, 0.2, 1, zap.NewNop())
}

func TestCompleteSendsPrompt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4.1-nano", req.Model)
		assert.Equal(t, 200, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system prompt", req.Messages[0].Content)
		assert.Equal(t, "user prompt", req.Messages[1].Content)
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID: "cmpl-1",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: " {\"words\":[]} \n"}},
			},
		})
	})

	out, err := client.Complete(context.Background(), core.Prompt{System: "system prompt", User: "user prompt", MaxTokens: 200, JSON: true})

	require.NoError(t, err)
	assert.Equal(t, `{"words":[]}`, out)
}

func TestCompleteClassifiesStatus(t *testing.T) {
	cases := map[int]core.ErrorKind{
		http.StatusUnauthorized:        core.Unauthorized,
		http.StatusTooManyRequests:     core.RateLimited,
		http.StatusServiceUnavailable:  core.ServiceUnavailable,
		http.StatusInternalServerError: core.Unknown,
	}
	for status, kind := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
		})

		_, err := client.Complete(context.Background(), core.Prompt{User: "hi"})

		require.Error(t, err)
		assert.Equal(t, kind, core.KindOf(err), "status %d", status)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "cmpl-2"})
	})

	_, err := client.Complete(context.Background(), core.Prompt{User: "hi"})

	assert.Equal(t, core.MalformedResponse, core.KindOf(err))
}

func TestCompleteTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, core.Prompt{User: "hi"})

	assert.Equal(t, core.Timeout, core.KindOf(err))
}
