package voice

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/audio"
	"github.com/rb4home/homevoice/internal/observability"
)

// player is the slice of the playback buffer the monitor needs.
type player interface {
	Active() bool
	Cancel()
}

// Monitor watches raw frames for user speech while synthesized audio is
// playing. It runs on every frame before the cooldown gate, with its own
// threshold below the VAD threshold so an interruption registers even
// when the user speaks softly over the assistant.
type Monitor struct {
	threshold float64
	player    player
	cooldown  *Cooldown
	log       zerolog.Logger
}

// NewMonitor creates a barge-in monitor over the given playback session.
func NewMonitor(threshold float64, p player, cd *Cooldown, log zerolog.Logger) *Monitor {
	return &Monitor{
		threshold: threshold,
		player:    p,
		cooldown:  cd,
		log:       log.With().Str("component", "barge_in").Logger(),
	}
}

// Check inspects one frame and reports whether a barge-in fired. On
// trigger it cancels the active playback session and replaces the
// cooldown with the short guard so the frames of the interrupting
// utterance pass through almost immediately.
func (m *Monitor) Check(frame audio.Frame, now time.Time) bool {
	if !m.player.Active() {
		return false
	}
	rms := audio.RMS(frame)
	if rms < m.threshold {
		return false
	}

	m.player.Cancel()
	m.cooldown.OnBargeIn(now)
	observability.RecordBargeIn()
	m.log.Info().Float64("rms", rms).Msg("barge-in detected, playback cancelled")
	return true
}
