package voice

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/audio"
	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/transport"
)

// fallbackApology is spoken when synthesis of a response fails. It is
// attempted at most once per failed response so a broken synthesis
// channel cannot loop on its own apology.
const fallbackApology = "Omlouvám se, něco se pokazilo."

// Recognizer is the speech-to-text leg of the pipeline.
type Recognizer interface {
	SendFrame(data []byte) error
	EndSegment() error
	Finals() <-chan string
	Close() error
}

// Synthesizer is the text-to-speech leg.
type Synthesizer interface {
	Speak(gen uint64, text string) error
	Messages() <-chan transport.SynthesisMessage
	Close() error
}

// Playback is the output buffer the controller feeds synthesis audio to.
type Playback interface {
	Start() uint64
	Feed(gen uint64, chunk []byte)
	End(gen uint64)
	Cancel()
	Active() bool
	Finished() <-chan uint64
	Close() error
}

// ControllerConfig tunes the capture session.
type ControllerConfig struct {
	VAD              audio.VADConfig
	BargeInThreshold float64
	Cooldown         CooldownPolicy
}

// Controller owns the capture session: it reads frames from the source,
// runs barge-in and cooldown checks, steps the VAD, forwards speech to
// the recognizer, executes finals, and streams the spoken response into
// the playback buffer.
type Controller struct {
	cfg    ControllerConfig
	source audio.FrameSource
	vad    *audio.Detector
	rec    Recognizer
	tts    Synthesizer
	player Playback
	exec   Executor

	cooldown *Cooldown
	monitor  *Monitor
	log      zerolog.Logger
	now      func() time.Time

	apologized atomic.Bool

	closeOnce sync.Once
}

// NewController wires a capture session from its parts.
func NewController(
	cfg ControllerConfig,
	source audio.FrameSource,
	rec Recognizer,
	tts Synthesizer,
	player Playback,
	exec Executor,
	log zerolog.Logger,
) *Controller {
	cd := NewCooldown(cfg.Cooldown)
	return &Controller{
		cfg:      cfg,
		source:   source,
		vad:      audio.NewDetector(cfg.VAD),
		rec:      rec,
		tts:      tts,
		player:   player,
		exec:     exec,
		cooldown: cd,
		monitor:  NewMonitor(cfg.BargeInThreshold, player, cd, log),
		log:      log.With().Str("component", "controller").Logger(),
		now:      time.Now,
	}
}

// Run drives the session until the context is cancelled or the frame
// source ends. Shutdown is ordered: the frame loop stops first, then the
// recognition and synthesis channels close, then playback, then the
// source itself.
func (c *Controller) Run(ctx context.Context) error {
	defer c.shutdown()

	var wg sync.WaitGroup
	done := make(chan struct{})
	defer func() {
		close(done)
		wg.Wait()
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		c.consumeFinals(ctx, done)
	}()
	go func() {
		defer wg.Done()
		c.consumeSynthesis(done)
	}()

	c.log.Info().Msg("capture session started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := c.source.ReadFrame()
		if err != nil {
			if err == io.EOF {
				c.log.Info().Msg("frame source ended")
				return nil
			}
			return err
		}
		c.step(frame)
	}
}

// step processes one frame: barge-in first, then the cooldown gate, then
// the VAD transition.
func (c *Controller) step(frame audio.Frame) {
	now := c.now()
	observability.RecordFrameCaptured()

	c.monitor.Check(frame, now)

	if c.cooldown.Active(now) {
		observability.RecordFrameDropped("cooldown")
		return
	}

	switch c.vad.Step(frame) {
	case audio.SpeechStarted, audio.SpeechContinuing:
		if err := c.rec.SendFrame(audio.EncodeS16LE(frame)); err != nil {
			observability.RecordFrameDropped("transport")
			c.log.Debug().Err(err).Msg("frame not forwarded")
			return
		}
		observability.RecordFrameForwarded()
	case audio.SpeechEnded:
		observability.RecordUtterance()
		if err := c.rec.EndSegment(); err != nil {
			c.log.Warn().Err(err).Msg("end-of-segment signal failed")
		}
	default:
		observability.RecordFrameDropped("silence")
	}
}

func (c *Controller) consumeFinals(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case text, ok := <-c.rec.Finals():
			if !ok {
				return
			}
			c.handleFinal(ctx, text)
		}
	}
}

func (c *Controller) handleFinal(ctx context.Context, text string) {
	log := c.log.With().Str("transcript", text).Logger()
	log.Info().Msg("final transcript")

	msg, err := c.exec.Execute(ctx, text)
	if err != nil {
		log.Error().Err(err).Msg("command execution failed")
		msg = fallbackApology
	}
	c.speak(msg)
}

// speak starts a fresh playback session for the response and requests
// synthesis. Any response still playing is cancelled first so the two
// never interleave.
func (c *Controller) speak(text string) {
	c.player.Cancel()
	gen := c.player.Start()
	c.cooldown.OnSynthesisStart(c.now())

	if err := c.tts.Speak(gen, text); err != nil {
		c.log.Error().Err(err).Msg("synthesis request failed")
		c.player.Cancel()
		c.cooldown.OnSynthesisEnd(c.now())
	}
}

func (c *Controller) consumeSynthesis(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-c.tts.Messages():
			if !ok {
				return
			}
			c.handleSynthesis(msg)
		case gen := <-c.player.Finished():
			c.cooldown.OnSynthesisEnd(c.now())
			c.apologized.Store(false)
			c.log.Debug().Uint64("generation", gen).Msg("playback finished")
		}
	}
}

func (c *Controller) handleSynthesis(msg transport.SynthesisMessage) {
	switch {
	case msg.Err != "":
		c.log.Error().Str("error", msg.Err).Msg("synthesis stream failed")
		c.player.Cancel()
		c.cooldown.OnSynthesisEnd(c.now())
		if c.apologized.CompareAndSwap(false, true) {
			c.speak(fallbackApology)
		}
	case msg.End:
		c.player.End(msg.Generation)
	default:
		c.player.Feed(msg.Generation, msg.Data)
	}
}

func (c *Controller) shutdown() {
	c.closeOnce.Do(func() {
		if err := c.rec.Close(); err != nil {
			c.log.Warn().Err(err).Msg("recognition close failed")
		}
		if err := c.tts.Close(); err != nil {
			c.log.Warn().Err(err).Msg("synthesis close failed")
		}
		c.player.Cancel()
		if err := c.player.Close(); err != nil {
			c.log.Warn().Err(err).Msg("playback close failed")
		}
		if err := c.source.Close(); err != nil {
			c.log.Warn().Err(err).Msg("frame source close failed")
		}
		c.log.Info().Msg("capture session stopped")
	})
}
