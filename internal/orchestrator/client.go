package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var errUnexpectedResult = errors.New("unexpected result variant")

// RemoteClient sends typed requests over a Sender with per-operation
// timeouts, optional pacing and retry.
type RemoteClient struct {
	sender  core.Sender
	retrier *Retrier
	limiter *rate.Limiter
	cfg     Config
	logger  *zap.Logger
}

// NewRemoteClient creates a client. A positive cfg.RateLimit paces attempts.
func NewRemoteClient(sender core.Sender, cfg Config, logger *zap.Logger) *RemoteClient {
	cfg = cfg.withDefaults()

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &RemoteClient{
		sender:  sender,
		retrier: NewRetrier(cfg.BaseDelay, cfg.MaxDelay, logger),
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Call executes req. Analysis output that stays malformed after every attempt
// comes back as an empty analysis rather than an error.
func (c *RemoteClient) Call(ctx context.Context, req core.Request) (*core.Result, error) {
	op := req.Op()
	attempts, timeout := c.cfg.budget(op)

	var result *core.Result
	err := c.retrier.Do(ctx, string(op), attempts, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		start := time.Now()
		res, err := c.sender.Send(ctx, req, timeout)
		if err == nil {
			err = checkVariant(op, res)
		}

		status := "ok"
		if err != nil {
			status = core.KindOf(err).String()
		}
		metrics.RecordRemoteCall(string(op), status, time.Since(start).Seconds())

		if err != nil {
			return err
		}
		result = res
		return nil
	})

	if err != nil {
		if op == core.OpAnalyzeParagraph && core.KindOf(err) == core.MalformedResponse {
			c.logger.Warn("Analysis output unrecoverable, using empty result", zap.Error(err))
			return core.EmptyAnalysis(), nil
		}
		return nil, err
	}

	if result.Analysis != nil {
		metrics.RecordRepair(result.Analysis.Fixed, result.Analysis.Dropped)
	}
	return result, nil
}

// checkVariant rejects results that do not match the request
func checkVariant(op core.Operation, res *core.Result) error {
	ok := false
	if res != nil {
		switch op {
		case core.OpLookupWord:
			ok = res.Kind == core.KindDictionary
		case core.OpTranslateText:
			ok = res.Kind == core.KindTranslation && res.Translation != nil
		case core.OpAnalyzeParagraph:
			ok = res.Kind == core.KindAnalysis && res.Analysis != nil
		}
	}
	if !ok {
		return core.NewRemoteError(core.MalformedResponse, string(op), errUnexpectedResult)
	}
	return nil
}
