package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/ela-assistant/internal/core"
)

func TestTrackerDeduplicatesConcurrentCalls(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	var calls atomic.Int32
	release := make(chan struct{})
	factory := func(ctx context.Context) (*core.Result, error) {
		calls.Add(1)
		<-release
		return wordResult("run"), nil
	}

	var wg sync.WaitGroup
	results := make([]*core.Result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, _, err := tracker.AcquireOrJoin(context.Background(), "word:run", factory)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	require.Eventually(t, func() bool { return tracker.InFlight() == 1 }, time.Second, time.Millisecond)
	// give the second caller time to join
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	require.NotNil(t, results[0])
	assert.Same(t, results[0], results[1])
	assert.Equal(t, 0, tracker.InFlight())
}

func TestTrackerStartsFreshAfterSettle(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	var calls atomic.Int32
	factory := func(ctx context.Context) (*core.Result, error) {
		calls.Add(1)
		return nil, remoteErr(core.Unknown)
	}

	_, _, err := tracker.AcquireOrJoin(context.Background(), "k", factory)
	require.Error(t, err)
	_, _, err = tracker.AcquireOrJoin(context.Background(), "k", factory)
	require.Error(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, tracker.InFlight())
}

func TestTrackerCallerCancellationKeepsSharedCall(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	release := make(chan struct{})
	factoryCtx := make(chan context.Context, 1)
	factory := func(ctx context.Context) (*core.Result, error) {
		factoryCtx <- ctx
		<-release
		return wordResult("cat"), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := tracker.AcquireOrJoin(ctx, "k", factory)
		errCh <- err
	}()

	fctx := <-factoryCtx
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.NoError(t, fctx.Err())

	close(release)
	require.Eventually(t, func() bool { return tracker.InFlight() == 0 }, time.Second, time.Millisecond)
}

func TestTrackerClearCancelsRunningCalls(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	started := make(chan struct{})
	factory := func(ctx context.Context) (*core.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		_, _, err := tracker.AcquireOrJoin(context.Background(), "k", factory)
		errCh <- err
	}()

	<-started
	tracker.Clear()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("running call was not cancelled")
	}

	// the tracker is usable again after clearing
	res, _, err := tracker.AcquireOrJoin(context.Background(), "k", func(ctx context.Context) (*core.Result, error) {
		return wordResult("dog"), ctx.Err()
	})
	require.NoError(t, err)
	assert.Equal(t, "dog", res.Analysis.Words[0].Word)
}

func TestTrackerWaitsForClearedCallBeforeRestarting(t *testing.T) {
	tracker := NewTracker(zap.NewNop())

	var active, peak atomic.Int32
	enter := func() {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				return
			}
		}
	}

	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context) (*core.Result, error) {
		enter()
		defer active.Add(-1)
		close(started)
		<-ctx.Done()
		// still unwinding the outbound request
		<-release
		return nil, ctx.Err()
	}

	errCh := make(chan error, 1)
	go func() {
		_, _, err := tracker.AcquireOrJoin(context.Background(), "k", slow)
		errCh <- err
	}()
	<-started
	tracker.Clear()

	assert.Equal(t, 0, tracker.InFlight())
	assert.Equal(t, 1, tracker.Draining())

	var fresh atomic.Int32
	resCh := make(chan *core.Result, 1)
	go func() {
		res, _, err := tracker.AcquireOrJoin(context.Background(), "k", func(ctx context.Context) (*core.Result, error) {
			enter()
			defer active.Add(-1)
			fresh.Add(1)
			return wordResult("cat"), nil
		})
		assert.NoError(t, err)
		resCh <- res
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fresh.Load())

	close(release)
	assert.ErrorIs(t, <-errCh, context.Canceled)

	select {
	case res := <-resCh:
		require.NotNil(t, res)
		assert.Equal(t, "cat", res.Analysis.Words[0].Word)
	case <-time.After(time.Second):
		t.Fatal("fresh call never started")
	}
	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 0, tracker.Draining())
	assert.Equal(t, 0, tracker.InFlight())
}
