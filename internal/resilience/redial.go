package resilience

import (
	"sync"
	"time"
)

// RedialGate rate-limits lazy reconnect attempts. A closed streaming
// channel is redialed only on the next send, and at most once per
// interval, so an unreachable backend does not cause a reconnect storm
// while no command is pending.
type RedialGate struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewRedialGate creates a gate with the given minimum interval between
// attempts.
func NewRedialGate(interval time.Duration) *RedialGate {
	return &RedialGate{interval: interval, now: time.Now}
}

// Allow reports whether a reconnect attempt may be made now, and records
// the attempt when it may.
func (g *RedialGate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return false
	}
	g.last = now
	return true
}

// Reset clears the attempt history, typically after a successful dial.
func (g *RedialGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = time.Time{}
}
