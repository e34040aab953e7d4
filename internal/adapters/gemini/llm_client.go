package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/mikey/ela-assistant/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

const op = "gemini"

// GeminiClient is an implementation of the LLMClient interface using Google Gemini
type GeminiClient struct {
	client      *genai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// model builds a per-call model handle; handles carry the system
// instruction and response type, so they are not shared between calls.
func (c *GeminiClient) model(prompt core.Prompt) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	model.SetTopP(c.topP)

	maxTokens := c.maxTokens
	if prompt.MaxTokens > 0 {
		maxTokens = prompt.MaxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	if prompt.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	}
	if prompt.JSON {
		model.ResponseMIMEType = "application/json"
	}
	return model
}

// Complete generates content for the prompt and returns the concatenated text parts
func (c *GeminiClient) Complete(ctx context.Context, prompt core.Prompt) (string, error) {
	resp, err := c.model(prompt).GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", classify(ctx, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", core.NewRemoteError(core.MalformedResponse, op, errors.New("empty response from Gemini"))
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", core.NewRemoteError(core.MalformedResponse, op, errors.New("no text in Gemini response"))
	}

	c.logger.Debug("Gemini completion",
		zap.String("model", c.modelName),
		zap.String("finish_reason", resp.Candidates[0].FinishReason.String()))

	return strings.TrimSpace(b.String()), nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if status := apiErr.HTTPCode(); status > 0 {
			return core.StatusError(op, status, err)
		}
		return core.NewRemoteError(kindOfCode(apiErr.GRPCStatus().Code()), op, err)
	}
	return fmt.Errorf("failed to generate content with Gemini: %w", err)
}

func kindOfCode(code codes.Code) core.ErrorKind {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return core.Unauthorized
	case codes.ResourceExhausted:
		return core.RateLimited
	case codes.Unavailable:
		return core.ServiceUnavailable
	case codes.DeadlineExceeded:
		return core.Timeout
	}
	return core.Unknown
}
