package bedrock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
)

type mockRuntime struct {
	mock.Mock
}

func (m *mockRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*bedrockruntime.InvokeModelOutput)
	return out, args.Error(1)
}

func TestCompleteAnthropic(t *testing.T) {
	rt := new(mockRuntime)
	rt.On("InvokeModel", mock.Anything, mock.MatchedBy(func(in *bedrockruntime.InvokeModelInput) bool {
		var body map[string]interface{}
		if err := json.Unmarshal(in.Body, &body); err != nil {
			return false
		}
		return body["system"] == "sys" && body["anthropic_version"] == anthropicVersion && body["max_tokens"] == float64(300)
	})).Return(&bedrockruntime.InvokeModelOutput{
		Body: []byte(`{"content":[{"type":"text","text":" {\"words\":[]} "}]}`),
	}, nil)

	client := NewBedrockClient(rt, "anthropic.claude-3-haiku-20240307-v1:0", 1000, 0.1, 0.9, zap.NewNop())
	out, err := client.Complete(context.Background(), core.Prompt{System: "sys", User: "hi", MaxTokens: 300})

	require.NoError(t, err)
	assert.Equal(t, `{"words":[]}`, out)
	rt.AssertExpectations(t)
}

func TestCompleteTitan(t *testing.T) {
	rt := new(mockRuntime)
	rt.On("InvokeModel", mock.Anything, mock.Anything).Return(&bedrockruntime.InvokeModelOutput{
		Body: []byte(`{"results":[{"outputText":"こんにちは"}]}`),
	}, nil)

	client := NewBedrockClient(rt, "amazon.titan-text-express-v1", 1000, 0.1, 0.9, zap.NewNop())
	out, err := client.Complete(context.Background(), core.Prompt{User: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "こんにちは", out)
}

func TestCompleteMalformedBody(t *testing.T) {
	rt := new(mockRuntime)
	rt.On("InvokeModel", mock.Anything, mock.Anything).Return(&bedrockruntime.InvokeModelOutput{Body: []byte(`{"content":[]}`)}, nil)

	client := NewBedrockClient(rt, "anthropic.claude-v2", 1000, 0.1, 0.9, zap.NewNop())
	_, err := client.Complete(context.Background(), core.Prompt{User: "hi"})

	assert.Equal(t, core.MalformedResponse, core.KindOf(err))
}

func TestCompleteClassifiesExceptions(t *testing.T) {
	cases := []struct {
		err  error
		kind core.ErrorKind
	}{
		{&types.ThrottlingException{}, core.RateLimited},
		{&types.ServiceUnavailableException{}, core.ServiceUnavailable},
		{&types.AccessDeniedException{}, core.Unauthorized},
		{&types.ValidationException{}, core.Unknown},
	}
	for _, tc := range cases {
		rt := new(mockRuntime)
		rt.On("InvokeModel", mock.Anything, mock.Anything).Return(nil, tc.err)

		client := NewBedrockClient(rt, "anthropic.claude-v2", 1000, 0.1, 0.9, zap.NewNop())
		_, err := client.Complete(context.Background(), core.Prompt{User: "hi"})

		assert.Equal(t, tc.kind, core.KindOf(err))
	}
}
