package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const op = "openai"

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Complete sends the prompt as a chat completion and returns the reply text
func (c *OpenAIClient) Complete(ctx context.Context, prompt core.Prompt) (string, error) {
	maxTokens := c.maxTokens
	if prompt.MaxTokens > 0 {
		maxTokens = prompt.MaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prompt.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.User,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	if prompt.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", core.NewRemoteError(core.MalformedResponse, op, errors.New("empty response from OpenAI"))
	}

	c.logger.Debug("OpenAI completion",
		zap.String("id", resp.ID),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return core.StatusError(op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return core.StatusError(op, reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
}
