package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"go.uber.org/zap"
)

// Local connects an orchestrator to a Handler in the same process
type Local struct {
	handler core.Handler
	logger  *zap.Logger

	once sync.Once
	done chan struct{}
}

// NewLocal creates an open in-process channel
func NewLocal(handler core.Handler, logger *zap.Logger) *Local {
	return &Local{
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Send runs req on the handler within timeout
func (l *Local) Send(ctx context.Context, req core.Request, timeout time.Duration) (*core.Result, error) {
	if !l.Alive() {
		return nil, ErrChannelClosed
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type reply struct {
		res *core.Result
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		res, err := l.handler.Handle(ctx, req)
		ch <- reply{res: res, err: err}
	}()

	select {
	case r := <-ch:
		return r.res, r.err
	case <-l.done:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, core.ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// Alive reports whether the channel is open
func (l *Local) Alive() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Close tears the channel down; pending and later sends fail with ErrChannelClosed
func (l *Local) Close() error {
	l.once.Do(func() {
		close(l.done)
		l.logger.Info("Local channel closed")
	})
	return nil
}
