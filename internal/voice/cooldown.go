// Package voice contains the capture-side session logic: the cooldown
// window, the barge-in monitor, and the controller that owns the frame
// loop and wires VAD, transport, dispatch, and playback together.
package voice

import (
	"sync/atomic"
	"time"
)

// CooldownPolicy holds the extension applied to the cooldown window by
// each trigger. Barge-in gets the short guard because the user is
// actively speaking and must not be gated out.
type CooldownPolicy struct {
	SynthStart time.Duration
	SynthEnd   time.Duration
	BargeIn    time.Duration
}

// DefaultCooldownPolicy returns the default guard durations.
func DefaultCooldownPolicy() CooldownPolicy {
	return CooldownPolicy{
		SynthStart: 2500 * time.Millisecond,
		SynthEnd:   1000 * time.Millisecond,
		BargeIn:    200 * time.Millisecond,
	}
}

// Cooldown is a single absolute deadline after which incoming audio is
// again treated as potential speech. While the window is active, frames
// are dropped before VAD so the tail of synthesized audio cannot
// re-trigger the pipeline.
type Cooldown struct {
	policy CooldownPolicy
	until  atomic.Int64 // unix nanos
}

// NewCooldown creates an inactive cooldown window.
func NewCooldown(policy CooldownPolicy) *Cooldown {
	return &Cooldown{policy: policy}
}

// OnSynthesisStart extends the window for the start of synthesized
// playback.
func (c *Cooldown) OnSynthesisStart(now time.Time) {
	c.until.Store(now.Add(c.policy.SynthStart).UnixNano())
}

// OnSynthesisEnd extends the window past the end of playback, covering
// trailing audio and room echo.
func (c *Cooldown) OnSynthesisEnd(now time.Time) {
	c.until.Store(now.Add(c.policy.SynthEnd).UnixNano())
}

// OnBargeIn replaces the window with the short guard.
func (c *Cooldown) OnBargeIn(now time.Time) {
	c.until.Store(now.Add(c.policy.BargeIn).UnixNano())
}

// Active reports whether the window still gates incoming audio.
func (c *Cooldown) Active(now time.Time) bool {
	return now.UnixNano() < c.until.Load()
}

// Reset clears the window, used on session start/stop.
func (c *Cooldown) Reset() {
	c.until.Store(0)
}
