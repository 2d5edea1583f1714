package transport

import "time"

// transcriptDedup suppresses a final transcript identical to the
// immediately preceding one within the window. Guards against
// transport-level retransmission duplicating a result.
type transcriptDedup struct {
	window time.Duration
	last   string
	lastAt time.Time
}

func newTranscriptDedup(window time.Duration) *transcriptDedup {
	return &transcriptDedup{window: window}
}

// admit reports whether the transcript should be processed and records it
// when it should.
func (d *transcriptDedup) admit(text string, now time.Time) bool {
	if text == d.last && !d.lastAt.IsZero() && now.Sub(d.lastAt) < d.window {
		return false
	}
	d.last = text
	d.lastAt = now
	return true
}
