// Package playback buffers streamed synthesis audio and plays it through
// a Sink as it arrives. At most one playback session is active at a time;
// sessions carry a monotonically increasing generation and anything not
// matching the current generation is discarded.
package playback

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/observability"
)

// Sink is the audio output. Play appends one chunk and blocks until the
// sink has accepted it; calls are strictly sequential. Stop aborts any
// output in progress immediately and may be called concurrently with
// Play.
type Sink interface {
	Play(chunk []byte) error
	Stop() error
	Close() error
}

// Player is the speech playback buffer. Chunks are appended in arrival
// order and flushed to the sink one at a time; a chunk is never written
// before the previous write returned.
type Player struct {
	sink Sink
	log  zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	active bool
	ended  bool
	queue  [][]byte

	wake     chan struct{}
	finished chan uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPlayer creates a player and starts its flush loop.
func NewPlayer(sink Sink, log zerolog.Logger) *Player {
	p := &Player{
		sink:     sink,
		log:      log.With().Str("component", "playback").Logger(),
		wake:     make(chan struct{}, 1),
		finished: make(chan uint64, 4),
		closed:   make(chan struct{}),
	}
	go p.flushLoop()
	return p
}

// Start begins a new playback session and returns its generation. The
// previous session is invalidated synchronously: chunks tagged with an
// older generation are dropped on arrival even before the sink has
// physically stopped.
func (p *Player) Start() uint64 {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.active = true
	p.ended = false
	p.queue = nil
	p.mu.Unlock()

	// Kill whatever the sink is still playing from the old session.
	if err := p.sink.Stop(); err != nil {
		p.log.Warn().Err(err).Msg("sink stop failed on session start")
	}
	observability.RecordPlaybackSession()
	return gen
}

// Feed appends one chunk for the given generation. Stale or cancelled
// generations are dropped.
func (p *Player) Feed(gen uint64, chunk []byte) {
	p.mu.Lock()
	if gen != p.gen || !p.active {
		p.mu.Unlock()
		observability.RecordPlaybackChunk("stale")
		return
	}
	p.queue = append(p.queue, chunk)
	p.mu.Unlock()
	p.signal()
}

// End marks the stream for the given generation as complete. The session
// finishes once the queue has drained.
func (p *Player) End(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || !p.active {
		p.mu.Unlock()
		return
	}
	p.ended = true
	p.mu.Unlock()
	p.signal()
}

// Cancel stops the active session immediately. Idempotent; a call with no
// active playback does nothing.
func (p *Player) Cancel() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.ended = false
	p.queue = nil
	p.mu.Unlock()

	if err := p.sink.Stop(); err != nil {
		p.log.Warn().Err(err).Msg("sink stop failed on cancel")
	}
}

// Active reports whether a playback session is in progress.
func (p *Player) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Generation returns the current session generation.
func (p *Player) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Finished delivers the generation of each session that played to
// completion (stream ended and queue drained).
func (p *Player) Finished() <-chan uint64 {
	return p.finished
}

// Close stops the flush loop and releases the sink.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.Cancel()
		p.sink.Close()
	})
	return nil
}

func (p *Player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Player) flushLoop() {
	for {
		select {
		case <-p.closed:
			return
		case <-p.wake:
		}
		p.drain()
	}
}

func (p *Player) drain() {
	for {
		p.mu.Lock()
		if !p.active {
			p.mu.Unlock()
			return
		}
		if len(p.queue) > 0 {
			chunk := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()

			if err := p.sink.Play(chunk); err != nil {
				observability.RecordPlaybackChunk("error")
				p.log.Warn().Err(err).Msg("sink play failed")
			} else {
				observability.RecordPlaybackChunk("played")
			}
			continue
		}
		if p.ended {
			p.active = false
			p.ended = false
			gen := p.gen
			p.mu.Unlock()

			select {
			case p.finished <- gen:
			default:
			}
			return
		}
		p.mu.Unlock()
		return
	}
}
