package audio

// Event classifies the outcome of one VAD step.
type Event int

const (
	// Silence means the frame is not part of a speech segment. Frames
	// preceding the speech-start hysteresis threshold also report
	// Silence and must not be forwarded upstream.
	Silence Event = iota

	// SpeechStarted marks the frame on which the consecutive-speech
	// threshold was reached. The frame belongs to the new segment.
	SpeechStarted

	// SpeechContinuing marks a frame inside an active speech segment.
	SpeechContinuing

	// SpeechEnded marks the frame on which the silence run-length limit
	// was reached. The segment is complete.
	SpeechEnded
)

// String returns a short label for logging.
func (e Event) String() string {
	switch e {
	case SpeechStarted:
		return "speech_started"
	case SpeechContinuing:
		return "speech_continuing"
	case SpeechEnded:
		return "speech_ended"
	default:
		return "silence"
	}
}

// VADConfig holds the voice activity detection policy.
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech
	MinSpeechFrames int     // consecutive speech frames before speech-start
	SilenceLimit    int     // consecutive silence frames before speech-end
}

// DefaultVADConfig returns the default detection policy: 3 consecutive
// speech frames to start, 8 consecutive silence frames (about 2 s at the
// 4096-sample cadence) to end.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 500.0,
		MinSpeechFrames: 3,
		SilenceLimit:    8,
	}
}

// VadState is the mutable detector state. It is mutated only by
// Detector.Step; Speaking is true only after SpeechRun reached
// MinSpeechFrames since the last transition.
type VadState struct {
	Speaking   bool
	SpeechRun  int
	SilenceRun int
}

// Detector classifies frames as speech or silence using RMS energy with
// run-length hysteresis on both edges.
type Detector struct {
	cfg   VADConfig
	state VadState
}

// NewDetector creates a detector with the given policy. Zero-valued
// thresholds fall back to the defaults.
func NewDetector(cfg VADConfig) *Detector {
	def := DefaultVADConfig()
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = def.EnergyThreshold
	}
	if cfg.MinSpeechFrames <= 0 {
		cfg.MinSpeechFrames = def.MinSpeechFrames
	}
	if cfg.SilenceLimit <= 0 {
		cfg.SilenceLimit = def.SilenceLimit
	}
	return &Detector{cfg: cfg}
}

// Step consumes one frame and advances the state machine.
func (d *Detector) Step(samples []int16) Event {
	energy := RMS(samples)

	if energy > d.cfg.EnergyThreshold {
		d.state.SpeechRun++
		d.state.SilenceRun = 0

		if d.state.Speaking {
			return SpeechContinuing
		}
		if d.state.SpeechRun >= d.cfg.MinSpeechFrames {
			d.state.Speaking = true
			return SpeechStarted
		}
		return Silence
	}

	if d.state.Speaking {
		d.state.SilenceRun++
		if d.state.SilenceRun >= d.cfg.SilenceLimit {
			d.state.Speaking = false
			d.state.SpeechRun = 0
			d.state.SilenceRun = 0
			return SpeechEnded
		}
		// Low-energy frames inside a segment still belong to it.
		return SpeechContinuing
	}

	d.state.SpeechRun = 0
	return Silence
}

// Speaking reports whether a speech segment is active.
func (d *Detector) Speaking() bool {
	return d.state.Speaking
}

// State returns a copy of the current detector state.
func (d *Detector) State() VadState {
	return d.state
}

// Reset clears the detector state.
func (d *Detector) Reset() {
	d.state = VadState{}
}
