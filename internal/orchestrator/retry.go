package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/metrics"
	"go.uber.org/zap"
)

// Retrier runs an operation with exponential backoff on retryable failures
type Retrier struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *zap.Logger
}

// NewRetrier creates a retrier waiting baseDelay * 2^n after failed attempt n
func NewRetrier(baseDelay, maxDelay time.Duration, logger *zap.Logger) *Retrier {
	return &Retrier{
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		logger:    logger,
	}
}

// Do calls operation up to attempts times. Only errors whose kind is
// retryable are tried again; the last error is returned unchanged so callers
// can still classify it.
func (r *Retrier) Do(ctx context.Context, op string, attempts int, operation func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 0 {
				r.logger.Debug("Operation succeeded after retry",
					zap.String("op", op),
					zap.Int("attempt", attempt+1),
					zap.Duration("total", time.Since(start)))
			}
			return nil
		}

		kind := core.KindOf(lastErr)
		retryable := core.Retryable(kind)
		if !retryable || attempt == attempts-1 {
			r.logger.Debug("Operation failed permanently",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Stringer("kind", kind),
				zap.Bool("retryable", retryable),
				zap.Error(lastErr))
			break
		}

		delay := r.Delay(attempt)
		r.logger.Debug("Retrying after backoff",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Stringer("kind", kind),
			zap.Duration("delay", delay))
		metrics.RecordRetry(op)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return lastErr
}

// Delay returns the wait after failed attempt n (zero based)
func (r *Retrier) Delay(attempt int) time.Duration {
	delay := r.baseDelay << uint(attempt)
	if r.maxDelay > 0 && (delay > r.maxDelay || delay <= 0) {
		delay = r.maxDelay
	}
	return delay
}
