// Package engine provides the minute-based match simulation: the event
// probability model, the phase machine, and the live loop that paces minutes
// in wall time and accepts control commands.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/talgya/pitchside/internal/match"
)

// Speed bounds for the live clock.
const (
	MinSpeed            = 0.25
	MaxSpeed            = 8.0
	DefaultSpeed        = 1.0
	DefaultBaseInterval = time.Second // One simulated minute at speed 1
)

// ClampSpeed bounds a requested speed to [MinSpeed, MaxSpeed]. NaN is
// treated as the default speed.
func ClampSpeed(x float64) float64 {
	if math.IsNaN(x) {
		return DefaultSpeed
	}
	return max(MinSpeed, min(MaxSpeed, x))
}

// Clock paces simulated minutes. A stopped clock yields a nil channel, so a
// select on C blocks until Start.
type Clock struct {
	base    time.Duration
	speed   float64
	ticker  *time.Ticker
	running bool
}

// NewClock creates a stopped clock.
func NewClock(base time.Duration, speed float64) *Clock {
	if base <= 0 {
		base = DefaultBaseInterval
	}
	return &Clock{base: base, speed: ClampSpeed(speed)}
}

// Speed returns the current multiplier.
func (c *Clock) Speed() float64 { return c.speed }

// Interval is the wall time per simulated minute: base / speed.
func (c *Clock) Interval() time.Duration {
	return time.Duration(float64(c.base) / c.speed)
}

// SetSpeed clamps and applies x, resetting a running ticker to the new
// interval. Returns the effective speed.
func (c *Clock) SetSpeed(x float64) float64 {
	c.speed = ClampSpeed(x)
	if c.running {
		c.ticker.Reset(c.Interval())
	}
	return c.speed
}

// Start begins ticking. Calling Start on a running clock is a no-op.
func (c *Clock) Start() {
	if c.running {
		return
	}
	if c.ticker == nil {
		c.ticker = time.NewTicker(c.Interval())
	} else {
		c.ticker.Reset(c.Interval())
	}
	c.running = true
}

// Stop halts ticking.
func (c *Clock) Stop() {
	if c.ticker != nil {
		c.ticker.Stop()
	}
	c.running = false
}

// Running reports whether the clock is ticking.
func (c *Clock) Running() bool { return c.running }

// C returns the tick channel, or nil while stopped.
func (c *Clock) C() <-chan time.Time {
	if !c.running {
		return nil
	}
	return c.ticker.C
}

// MatchTime formats a minute the way a scoreboard shows it: "37'", "90+3'".
func MatchTime(minute int) string {
	if minute > match.RegulationEnd {
		return fmt.Sprintf("%d+%d'", match.RegulationEnd, minute-match.RegulationEnd)
	}
	return fmt.Sprintf("%d'", minute)
}
