package orchestrator

import (
	"time"

	"github.com/mikey/ela-assistant/internal/core"
)

// Config gathers every scheduling and retry constant in one place
type Config struct {
	// Concurrency is the scheduler window
	Concurrency int
	// BreakerThreshold consecutive transient failures stop a session
	BreakerThreshold int
	// CooldownEvery consecutive failures trigger a Cooldown pause
	CooldownEvery int
	Cooldown      time.Duration

	// BaseDelay is the backoff unit: attempt n waits BaseDelay * 2^n
	BaseDelay time.Duration
	MaxDelay  time.Duration

	LookupAttempts    int
	TranslateAttempts int
	AnalyzeAttempts   int

	LookupTimeout    time.Duration
	TranslateTimeout time.Duration
	AnalyzeTimeout   time.Duration

	// RateLimit paces outbound attempts per second; zero disables pacing
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns the production values
func DefaultConfig() Config {
	return Config{
		Concurrency:       15,
		BreakerThreshold:  20,
		CooldownEvery:     5,
		Cooldown:          time.Second,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		LookupAttempts:    2,
		TranslateAttempts: 2,
		AnalyzeAttempts:   3,
		LookupTimeout:     10 * time.Second,
		TranslateTimeout:  30 * time.Second,
		AnalyzeTimeout:    60 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = d.BreakerThreshold
	}
	if c.CooldownEvery <= 0 {
		c.CooldownEvery = d.CooldownEvery
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.LookupAttempts <= 0 {
		c.LookupAttempts = d.LookupAttempts
	}
	if c.TranslateAttempts <= 0 {
		c.TranslateAttempts = d.TranslateAttempts
	}
	if c.AnalyzeAttempts <= 0 {
		c.AnalyzeAttempts = d.AnalyzeAttempts
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = d.LookupTimeout
	}
	if c.TranslateTimeout <= 0 {
		c.TranslateTimeout = d.TranslateTimeout
	}
	if c.AnalyzeTimeout <= 0 {
		c.AnalyzeTimeout = d.AnalyzeTimeout
	}
	return c
}

// budget returns the attempt count and per-attempt timeout for an operation
func (c Config) budget(op core.Operation) (attempts int, timeout time.Duration) {
	switch op {
	case core.OpLookupWord:
		return c.LookupAttempts, c.LookupTimeout
	case core.OpTranslateText:
		return c.TranslateAttempts, c.TranslateTimeout
	default:
		return c.AnalyzeAttempts, c.AnalyzeTimeout
	}
}
