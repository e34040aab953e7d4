package orchestrator

import (
	"context"
	"slices"
	"sync"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Factory starts the remote call for a key. It runs under the tracker's
// context, not the caller's, so one caller giving up does not cancel the
// call for the others.
type Factory func(ctx context.Context) (*core.Result, error)

// Tracker keeps at most one outstanding call per key and hands its result
// to every caller that asked for the key meanwhile.
type Tracker struct {
	group  singleflight.Group
	logger *zap.Logger

	mu       sync.Mutex
	base     context.Context
	cancel   context.CancelFunc
	running  map[string]*call
	draining map[string][]*call
}

// call is one factory run; done closes when the factory returns
type call struct {
	done chan struct{}
}

// NewTracker creates an empty tracker
func NewTracker(logger *zap.Logger) *Tracker {
	base, cancel := context.WithCancel(context.Background())
	return &Tracker{
		logger:   logger,
		base:     base,
		cancel:   cancel,
		running:  make(map[string]*call),
		draining: make(map[string][]*call),
	}
}

// AcquireOrJoin starts factory for key, or joins the call already running for
// it. shared reports whether the result went to more than one caller. The
// registration is dropped as soon as the call settles. A call for a key that
// Clear abandoned starts only after the abandoned factory has returned.
func (t *Tracker) AcquireOrJoin(ctx context.Context, key string, factory Factory) (res *core.Result, shared bool, err error) {
	t.mu.Lock()
	base := t.base
	t.mu.Unlock()

	ch := t.group.DoChan(key, func() (any, error) {
		if err := t.awaitDraining(base, key); err != nil {
			return nil, err
		}
		c, err := t.start(base, key)
		if err != nil {
			return nil, err
		}
		defer t.finish(key, c)
		return factory(base)
	})

	select {
	case r := <-ch:
		if r.Shared {
			metrics.InFlightJoinsTotal.Inc()
		}
		res, _ = r.Val.(*core.Result)
		return res, r.Shared, r.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (t *Tracker) awaitDraining(ctx context.Context, key string) error {
	t.mu.Lock()
	pending := append([]*call(nil), t.draining[key]...)
	t.mu.Unlock()

	for _, c := range pending {
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *Tracker) start(base context.Context, key string) (*call, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// cleared while waiting for the previous call
	if err := base.Err(); err != nil {
		return nil, err
	}
	c := &call{done: make(chan struct{})}
	t.running[key] = c
	return c, nil
}

func (t *Tracker) finish(key string, c *call) {
	t.mu.Lock()
	defer t.mu.Unlock()

	close(c.done)
	if t.running[key] == c {
		delete(t.running, key)
	}
	rest := slices.DeleteFunc(t.draining[key], func(d *call) bool { return d == c })
	if len(rest) == 0 {
		delete(t.draining, key)
	} else {
		t.draining[key] = rest
	}
}

// InFlight returns the number of keys with a running call. Calls abandoned
// by Clear are not counted.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.running)
}

// Draining returns the number of abandoned calls whose factory has not returned yet
func (t *Tracker) Draining() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, calls := range t.draining {
		n += len(calls)
	}
	return n
}

// Clear cancels every running call and forgets all keys. New callers get a
// fresh call, which waits for the cancelled one on the same key to return so
// that a key never has two outbound calls at once.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancel()
	for key, c := range t.running {
		t.group.Forget(key)
		t.draining[key] = append(t.draining[key], c)
	}
	cleared := len(t.running)
	t.running = make(map[string]*call)
	t.base, t.cancel = context.WithCancel(context.Background())

	t.logger.Debug("Cleared in-flight tracker", zap.Int("cancelled", cleared))
}
