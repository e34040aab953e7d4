package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/metrics"
	"go.uber.org/zap"
)

// SessionState is the scheduler state machine:
// Idle -> Running -> {Draining -> Done, CircuitOpen -> Done}
type SessionState int

const (
	StateIdle SessionState = iota
	StateRunning
	StateDraining
	StateCircuitOpen
	StateDone
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateCircuitOpen:
		return "circuit_open"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Reason explains why a session ended
type Reason string

const (
	ReasonDrained      Reason = "drained"
	ReasonCircuitOpen  Reason = "circuit_open"
	ReasonInvalidated  Reason = "invalidated"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonCancelled    Reason = "cancelled"
)

// Summary reports one finished session. Abandoned counts units that were
// neither applied nor failed: undispatched backlog plus in-flight work
// dropped on invalidation, authorization failure or cancellation.
type Summary struct {
	SessionID  string
	Succeeded  int
	Failed     int
	Abandoned  int
	Total      int
	Dispatched int
	Reason     Reason
	// Degraded is set when nothing succeeded; callers should switch to
	// on-demand per-item requests.
	Degraded bool
	Duration time.Duration
}

// Stats is a snapshot of the scheduler's bookkeeping
type Stats struct {
	ConcurrencyLimit    int
	Backlog             int
	Running             int
	ConsecutiveFailures int
}

// Task processes one unit
type Task func(ctx context.Context, unit core.WorkUnit) (*core.Result, error)

// ResultFunc receives successful results in completion order
type ResultFunc func(unit core.WorkUnit, res *core.Result)

type outcome struct {
	unit core.WorkUnit
	res  *core.Result
	err  error
}

// Scheduler streams a backlog through a fixed concurrency window
type Scheduler struct {
	cfg     Config
	monitor *Monitor
	logger  *zap.Logger

	mu    sync.Mutex
	state SessionState
	stats Stats
}

// NewScheduler creates a scheduler. monitor may be nil.
func NewScheduler(cfg Config, monitor *Monitor, logger *zap.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:     cfg,
		monitor: monitor,
		logger:  logger,
		stats:   Stats{ConcurrencyLimit: cfg.Concurrency},
	}
}

// State returns the current state
func (s *Scheduler) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns the current bookkeeping snapshot
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) update(state SessionState, backlog, running, failures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.stats = Stats{
		ConcurrencyLimit:    s.cfg.Concurrency,
		Backlog:             backlog,
		Running:             running,
		ConsecutiveFailures: failures,
	}
}

// Run processes units with task, calling onResult for each success as it
// completes. It returns when the backlog drains, the breaker trips, the
// context is invalidated, credentials are rejected or ctx is cancelled.
// Partial completion is a normal outcome, not an error.
func (s *Scheduler) Run(ctx context.Context, units []core.WorkUnit, task Task, onResult ResultFunc) Summary {
	start := time.Now()
	sum := Summary{
		SessionID: uuid.NewString(),
		Total:     len(units),
		Reason:    ReasonDrained,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var invalidated <-chan struct{}
	if s.monitor != nil {
		invalidated = s.monitor.Done()
	}

	// Buffered so abandoned tasks never block on send
	results := make(chan outcome, len(units))

	var (
		next     int
		running  int
		failures int
		state    = StateRunning
		stopped  bool
	)

	stop := func(reason Reason, newState SessionState) {
		stopped = true
		sum.Reason = reason
		state = newState
	}

	abandon := func(reason Reason) {
		stop(reason, StateDone)
		cancel()
		running = 0
	}

	dispatch := func() {
		for !stopped && running < s.cfg.Concurrency && next < len(units) {
			if runCtx.Err() != nil {
				abandon(ReasonCancelled)
				return
			}
			if s.monitor != nil && !s.monitor.IsValid() {
				abandon(ReasonInvalidated)
				return
			}
			unit := units[next]
			next++
			running++
			sum.Dispatched++
			go func() {
				res, err := task(runCtx, unit)
				results <- outcome{unit: unit, res: res, err: err}
			}()
		}
		if !stopped && next == len(units) {
			state = StateDraining
		}
	}

	s.update(StateRunning, len(units), 0, 0)
	dispatch()
	s.update(state, len(units)-next, running, failures)

	for running > 0 {
		select {
		case o := <-results:
			if closed(invalidated) {
				abandon(ReasonInvalidated)
				break
			}
			running--
			if o.err == nil {
				sum.Succeeded++
				failures = 0
				if onResult != nil {
					onResult(o.unit, o.res)
				}
			} else {
				sum.Failed++
				s.handleFailure(runCtx, o, &failures, invalidated, stop, abandon)
			}
			dispatch()
		case <-invalidated:
			abandon(ReasonInvalidated)
		case <-runCtx.Done():
			abandon(ReasonCancelled)
		}
		s.update(state, len(units)-next, running, failures)
	}

	sum.Abandoned = sum.Total - sum.Succeeded - sum.Failed
	sum.Degraded = sum.Total > 0 && sum.Succeeded == 0
	sum.Duration = time.Since(start)
	s.update(StateDone, len(units)-next, 0, failures)

	metrics.RecordSession(sum.Succeeded, sum.Failed, sum.Abandoned)
	s.logger.Info("Session complete",
		zap.String("session_id", sum.SessionID),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("abandoned", sum.Abandoned),
		zap.Int("total", sum.Total),
		zap.String("reason", string(sum.Reason)),
		zap.Bool("degraded", sum.Degraded),
		zap.Duration("duration", sum.Duration))

	return sum
}

func (s *Scheduler) handleFailure(ctx context.Context, o outcome, failures *int, invalidated <-chan struct{},
	stop func(Reason, SessionState), abandon func(Reason)) {
	kind := core.KindOf(o.err)
	s.logger.Debug("Unit failed",
		zap.String("unit", o.unit.ID),
		zap.Stringer("kind", kind),
		zap.Error(o.err))

	switch {
	case kind == core.ChannelClosed:
		if s.monitor != nil {
			s.monitor.Invalidate(o.err)
		}
		abandon(ReasonInvalidated)
	case kind == core.Unauthorized:
		s.logger.Error("Credentials rejected, aborting session", zap.Error(o.err))
		abandon(ReasonUnauthorized)
		// calls still running carry the same rejected credentials
		if s.monitor != nil && s.monitor.tracker != nil {
			s.monitor.tracker.Clear()
		}
	case core.Transient(kind):
		*failures++
		switch {
		case *failures == s.cfg.BreakerThreshold:
			metrics.BreakerTripsTotal.Inc()
			s.logger.Warn("Circuit breaker open, no further dispatch",
				zap.Int("consecutive_failures", *failures))
			stop(ReasonCircuitOpen, StateCircuitOpen)
		case *failures < s.cfg.BreakerThreshold && *failures%s.cfg.CooldownEvery == 0:
			s.logger.Info("Cooling down after consecutive failures",
				zap.Int("consecutive_failures", *failures),
				zap.Duration("cooldown", s.cfg.Cooldown))
			s.cooldown(ctx, invalidated)
		}
	}
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (s *Scheduler) cooldown(ctx context.Context, invalidated <-chan struct{}) {
	if s.cfg.Cooldown <= 0 {
		return
	}
	timer := time.NewTimer(s.cfg.Cooldown)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-invalidated:
	}
}
