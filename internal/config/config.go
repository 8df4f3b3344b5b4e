// Package config defines session configuration and validates it before
// the clock starts. All configuration errors fail fast at construction;
// nothing in the core reads the environment or mutates global state.
package config

import (
	"fmt"
	"time"

	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/domain"
	"github.com/Fincept-Corporation/FinceptTerminal-sub003/internal/latency"
)

// Halt configures the continuous-trading circuit breaker.
type Halt struct {
	BandBP      int64 // price move from window reference that trips, basis points
	WindowTicks int   // reference refresh window
	HaltTicks   int   // duration of a halt
}

// Sentiment configures the mean-reverting session sentiment process.
type Sentiment struct {
	Revert float64 // pull toward zero per tick, in [0,1]
	Vol    float64 // stddev of the per-tick innovation
}

// Session is the full configuration of one simulated trading session.
type Session struct {
	Seed         int64
	TickInterval time.Duration // simulated time per tick

	PreOpenTicks    int
	ContinuousTicks int
	ClosingTicks    int

	CandleInterval  time.Duration
	DepthLevels     int
	DefaultCollarBP int64
	EventBuffer     int

	Halt      Halt
	Sentiment Sentiment

	Instruments    []domain.Instrument
	Latency        map[string]latency.Profile
	DefaultLatency latency.Profile
}

// Validate checks the session configuration. It returns a
// *domain.ValidationError describing the first problem found.
func (c *Session) Validate() error {
	if c.TickInterval <= 0 {
		return invalid("tick_interval must be positive")
	}
	if c.PreOpenTicks < 0 || c.ClosingTicks < 0 {
		return invalid("phase tick counts must not be negative")
	}
	if c.ContinuousTicks <= 0 {
		return invalid("continuous_ticks must be positive")
	}
	if c.DepthLevels <= 0 {
		return invalid("depth_levels must be positive")
	}
	if len(c.Instruments) == 0 {
		return invalid("instrument universe is empty")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, ins := range c.Instruments {
		if ins.ID == "" {
			return invalid("instrument with empty id")
		}
		if seen[ins.ID] {
			return invalid(fmt.Sprintf("duplicate instrument %q", ins.ID))
		}
		seen[ins.ID] = true
		if ins.TickSize <= 0 {
			return invalid(fmt.Sprintf("instrument %q: tick_size must be positive", ins.ID))
		}
		if ins.LotSize <= 0 {
			return invalid(fmt.Sprintf("instrument %q: lot_size must be positive", ins.ID))
		}
		if ins.ReferencePrice <= 0 {
			return invalid(fmt.Sprintf("instrument %q: reference_price must be positive", ins.ID))
		}
		if ins.InitialMarginBP < 0 || ins.CollarBP < 0 {
			return invalid(fmt.Sprintf("instrument %q: margin and collar must not be negative", ins.ID))
		}
	}
	if c.Halt.BandBP < 0 || c.Halt.WindowTicks < 0 || c.Halt.HaltTicks < 0 {
		return invalid("halt parameters must not be negative")
	}
	if c.Sentiment.Revert < 0 || c.Sentiment.Revert > 1 {
		return invalid("sentiment revert must be in [0,1]")
	}
	return nil
}

func invalid(msg string) error {
	return &domain.ValidationError{Message: msg}
}
