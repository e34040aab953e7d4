package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
)

func TestRetrierDelayDoubles(t *testing.T) {
	r := NewRetrier(100*time.Millisecond, time.Second, zap.NewNop())

	assert.Equal(t, 100*time.Millisecond, r.Delay(0))
	assert.Equal(t, 200*time.Millisecond, r.Delay(1))
	assert.Equal(t, 400*time.Millisecond, r.Delay(2))
	assert.Equal(t, time.Second, r.Delay(5))
	assert.Equal(t, time.Second, r.Delay(80))
}

func TestRetrierStopsOnNonRetryable(t *testing.T) {
	r := NewRetrier(time.Millisecond, time.Millisecond, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), "op", 3, func(ctx context.Context) error {
		calls++
		return remoteErr(core.Unauthorized)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, core.Unauthorized, core.KindOf(err))
}

func TestRetrierHonoursContext(t *testing.T) {
	r := NewRetrier(time.Hour, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, "op", 3, func(ctx context.Context) error {
		return remoteErr(core.RateLimited)
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientRetriesTransientFailures(t *testing.T) {
	attempt := 0
	sender := newFakeSender(func(ctx context.Context, req core.Request) (*core.Result, error) {
		attempt++
		if attempt < 3 {
			return nil, remoteErr(core.ServiceUnavailable)
		}
		return wordResult("cat"), nil
	})
	client := NewRemoteClient(sender, testConfig(), zap.NewNop())

	res, err := client.Call(context.Background(), core.AnalyzeParagraphRequest{Text: "The cat."})

	require.NoError(t, err)
	assert.Equal(t, "cat", res.Analysis.Words[0].Word)
	assert.Equal(t, 3, sender.Calls(core.OpAnalyzeParagraph))
}

func TestClientAttemptBudgets(t *testing.T) {
	sender := newFakeSender(func(ctx context.Context, req core.Request) (*core.Result, error) {
		return nil, remoteErr(core.RateLimited)
	})
	client := NewRemoteClient(sender, testConfig(), zap.NewNop())

	_, err := client.Call(context.Background(), core.LookupWordRequest{Word: "run"})
	assert.Equal(t, core.RateLimited, core.KindOf(err))
	assert.Equal(t, 2, sender.Calls(core.OpLookupWord))

	_, err = client.Call(context.Background(), core.TranslateTextRequest{Text: "hello"})
	assert.Equal(t, core.RateLimited, core.KindOf(err))
	assert.Equal(t, 2, sender.Calls(core.OpTranslateText))

	_, err = client.Call(context.Background(), core.AnalyzeParagraphRequest{Text: "hello"})
	assert.Equal(t, core.RateLimited, core.KindOf(err))
	assert.Equal(t, 3, sender.Calls(core.OpAnalyzeParagraph))
}

func TestClientUnknownIsNotRetried(t *testing.T) {
	sender := newFakeSender(func(ctx context.Context, req core.Request) (*core.Result, error) {
		return nil, core.StatusError("analyze_paragraph", 500, errors.New("boom"))
	})
	client := NewRemoteClient(sender, testConfig(), zap.NewNop())

	_, err := client.Call(context.Background(), core.AnalyzeParagraphRequest{Text: "x"})

	assert.Equal(t, core.Unknown, core.KindOf(err))
	assert.Equal(t, 1, sender.Calls(core.OpAnalyzeParagraph))
}

func TestClientMalformedAnalysisDegradesToEmpty(t *testing.T) {
	sender := newFakeSender(func(ctx context.Context, req core.Request) (*core.Result, error) {
		return nil, remoteErr(core.MalformedResponse)
	})
	client := NewRemoteClient(sender, testConfig(), zap.NewNop())

	res, err := client.Call(context.Background(), core.AnalyzeParagraphRequest{Text: "x"})

	require.NoError(t, err)
	require.NotNil(t, res.Analysis)
	assert.Empty(t, res.Analysis.Words)
	assert.NotNil(t, res.Analysis.Phrases)
	assert.Equal(t, 3, sender.Calls(core.OpAnalyzeParagraph))
}

func TestClientRejectsWrongVariant(t *testing.T) {
	sender := newFakeSender(func(ctx context.Context, req core.Request) (*core.Result, error) {
		return wordResult("cat"), nil
	})
	client := NewRemoteClient(sender, testConfig(), zap.NewNop())

	_, err := client.Call(context.Background(), core.TranslateTextRequest{Text: "cat"})

	assert.Equal(t, core.MalformedResponse, core.KindOf(err))
}

func TestClientTimeoutPerAttempt(t *testing.T) {
	cfg := testConfig()
	cfg.LookupTimeout = 10 * time.Millisecond
	sender := newFakeSender(func(ctx context.Context, req core.Request) (*core.Result, error) {
		<-ctx.Done()
		return nil, core.ErrTimeout
	})
	client := NewRemoteClient(sender, cfg, zap.NewNop())

	start := time.Now()
	_, err := client.Call(context.Background(), core.LookupWordRequest{Word: "run"})

	assert.Equal(t, core.Timeout, core.KindOf(err))
	assert.Equal(t, 2, sender.Calls(core.OpLookupWord))
	assert.Less(t, time.Since(start), time.Second)
}
