package orchestrator

import (
	"sync"

	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/metrics"
	"go.uber.org/zap"
)

// InvalidatedNotice is the single message sent when the counterpart goes away
const InvalidatedNotice = "The assistant lost its connection to the background service. Reload to continue."

// Monitor tracks whether the process issuing outbound calls is still
// reachable. Validity is checked on demand before each dispatch and on
// each ChannelClosed failure; nothing polls in the background.
type Monitor struct {
	check   func() bool
	tracker *Tracker
	logger  *zap.Logger

	mu       sync.Mutex
	invalid  bool
	cause    error
	done     chan struct{}
	onNotice func(message string)
}

// NewMonitor creates a monitor. check may be nil, in which case only
// explicit invalidation marks the context invalid.
func NewMonitor(check func() bool, tracker *Tracker, logger *zap.Logger) *Monitor {
	return &Monitor{
		check:   check,
		tracker: tracker,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// OnNotice sets the callback fired once per invalidation
func (m *Monitor) OnNotice(fn func(message string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotice = fn
}

// IsValid reports whether requests may still be dispatched. A failed check
// invalidates the context.
func (m *Monitor) IsValid() bool {
	m.mu.Lock()
	invalid := m.invalid
	m.mu.Unlock()
	if invalid {
		return false
	}

	if m.check != nil && !m.check() {
		m.Invalidate(core.ErrChannelClosed)
		return false
	}
	return true
}

// Invalidate marks the context invalid, clears the in-flight tracker, closes
// Done and fires the notice. Only the first call has any effect; it reports
// whether this call was the one that invalidated.
func (m *Monitor) Invalidate(cause error) bool {
	m.mu.Lock()
	if m.invalid {
		m.mu.Unlock()
		return false
	}
	m.invalid = true
	m.cause = cause
	close(m.done)
	notice := m.onNotice
	m.mu.Unlock()

	metrics.InvalidationsTotal.Inc()
	m.logger.Warn("Context invalidated, abandoning outstanding work", zap.Error(cause))

	if m.tracker != nil {
		m.tracker.Clear()
	}
	if notice != nil {
		notice(InvalidatedNotice)
	}
	return true
}

// Done is closed once the context is invalidated
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Err returns the invalidation cause, or nil while valid
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cause
}

// Reset re-arms the monitor after the channel has been re-established
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.invalid {
		return
	}
	m.invalid = false
	m.cause = nil
	m.done = make(chan struct{})
	m.logger.Info("Context re-established")
}
