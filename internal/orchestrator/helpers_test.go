package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Cooldown = 5 * time.Millisecond
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

// fakeSender answers requests with handle and counts calls per operation
type fakeSender struct {
	handle func(ctx context.Context, req core.Request) (*core.Result, error)
	dead   atomic.Bool

	mu    sync.Mutex
	calls map[core.Operation]int
}

func newFakeSender(handle func(ctx context.Context, req core.Request) (*core.Result, error)) *fakeSender {
	return &fakeSender{handle: handle, calls: make(map[core.Operation]int)}
}

func (f *fakeSender) Send(ctx context.Context, req core.Request, timeout time.Duration) (*core.Result, error) {
	f.mu.Lock()
	f.calls[req.Op()]++
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return f.handle(ctx, req)
}

func (f *fakeSender) Alive() bool {
	return !f.dead.Load()
}

func (f *fakeSender) Calls(op core.Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

type staticSource []core.WorkUnit

func (s staticSource) ExtractWorkUnits(ctx context.Context) ([]core.WorkUnit, error) {
	return s, nil
}

func wordResult(word string) *core.Result {
	return core.NewAnalysisResult(&core.AnalysisResult{
		Words:   []core.WordAnalysis{{Word: word, PartOfSpeech: "noun"}},
		Phrases: []core.PhraseAnalysis{},
	})
}

func remoteErr(kind core.ErrorKind) error {
	return core.NewRemoteError(kind, "test", nil)
}
