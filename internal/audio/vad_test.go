package audio

import (
	"testing"
)

func loudFrame() Frame {
	samples := make(Frame, FrameSamples)
	for i := range samples {
		samples[i] = 5000
	}
	return samples
}

func quietFrame() Frame {
	samples := make(Frame, FrameSamples)
	for i := range samples {
		samples[i] = 10
	}
	return samples
}

func TestDetector_StartHysteresis(t *testing.T) {
	vad := NewDetector(VADConfig{EnergyThreshold: 500, MinSpeechFrames: 3, SilenceLimit: 8})

	// The first two loud frames stay below the hysteresis threshold and
	// must be reported as silence.
	for i := 0; i < 2; i++ {
		if ev := vad.Step(loudFrame()); ev != Silence {
			t.Errorf("frame %d: expected Silence before hysteresis, got %v", i, ev)
		}
		if vad.Speaking() {
			t.Errorf("frame %d: detector should not be speaking yet", i)
		}
	}

	if ev := vad.Step(loudFrame()); ev != SpeechStarted {
		t.Errorf("expected SpeechStarted on third loud frame, got %v", ev)
	}
	if !vad.Speaking() {
		t.Error("detector should be speaking after SpeechStarted")
	}

	if ev := vad.Step(loudFrame()); ev != SpeechContinuing {
		t.Errorf("expected SpeechContinuing, got %v", ev)
	}
}

func TestDetector_TransientNoiseDoesNotTrigger(t *testing.T) {
	vad := NewDetector(VADConfig{EnergyThreshold: 500, MinSpeechFrames: 3, SilenceLimit: 8})

	// Two loud frames interleaved with silence never reach the threshold.
	for i := 0; i < 10; i++ {
		if ev := vad.Step(loudFrame()); ev != Silence {
			t.Fatalf("iteration %d: expected Silence, got %v", i, ev)
		}
		if ev := vad.Step(loudFrame()); ev != Silence {
			t.Fatalf("iteration %d: expected Silence, got %v", i, ev)
		}
		if ev := vad.Step(quietFrame()); ev != Silence {
			t.Fatalf("iteration %d: expected Silence, got %v", i, ev)
		}
	}
	if vad.Speaking() {
		t.Error("transient noise must not start a segment")
	}
}

func TestDetector_OneStartOneEnd(t *testing.T) {
	vad := NewDetector(VADConfig{EnergyThreshold: 500, MinSpeechFrames: 3, SilenceLimit: 8})

	var started, ended int

	for i := 0; i < 5; i++ {
		switch vad.Step(loudFrame()) {
		case SpeechStarted:
			started++
		case SpeechEnded:
			ended++
		}
	}
	for i := 0; i < 12; i++ {
		switch vad.Step(quietFrame()) {
		case SpeechStarted:
			started++
		case SpeechEnded:
			ended++
		}
	}

	if started != 1 {
		t.Errorf("expected exactly one SpeechStarted, got %d", started)
	}
	if ended != 1 {
		t.Errorf("expected exactly one SpeechEnded, got %d", ended)
	}
	if vad.Speaking() {
		t.Error("detector should be idle after the segment ended")
	}
}

func TestDetector_SilenceInsideSegment(t *testing.T) {
	vad := NewDetector(VADConfig{EnergyThreshold: 500, MinSpeechFrames: 3, SilenceLimit: 8})

	for i := 0; i < 3; i++ {
		vad.Step(loudFrame())
	}

	// Short pauses (below the silence limit) stay inside the segment.
	for i := 0; i < 7; i++ {
		if ev := vad.Step(quietFrame()); ev != SpeechContinuing {
			t.Fatalf("pause frame %d: expected SpeechContinuing, got %v", i, ev)
		}
	}
	if ev := vad.Step(loudFrame()); ev != SpeechContinuing {
		t.Errorf("expected SpeechContinuing after pause, got %v", ev)
	}

	// The silence run-length was reset by the loud frame; a full run of
	// quiet frames is needed again to end the segment.
	for i := 0; i < 7; i++ {
		if ev := vad.Step(quietFrame()); ev != SpeechContinuing {
			t.Fatalf("frame %d: expected SpeechContinuing, got %v", i, ev)
		}
	}
	if ev := vad.Step(quietFrame()); ev != SpeechEnded {
		t.Errorf("expected SpeechEnded after full silence run, got %v", ev)
	}
}

func TestDetector_NeverForwardsWhileIdle(t *testing.T) {
	vad := NewDetector(VADConfig{EnergyThreshold: 500, MinSpeechFrames: 3, SilenceLimit: 8})

	// Forwarding decisions key off SpeechStarted/SpeechContinuing; verify
	// no such event is ever produced while the detector is idle.
	frames := []Frame{quietFrame(), loudFrame(), quietFrame(), loudFrame(), loudFrame(), quietFrame()}
	for i, f := range frames {
		ev := vad.Step(f)
		if ev == SpeechStarted || ev == SpeechContinuing {
			t.Errorf("frame %d: unexpected forwardable event %v while idle", i, ev)
		}
	}
}

func TestDetector_Reset(t *testing.T) {
	vad := NewDetector(VADConfig{EnergyThreshold: 500, MinSpeechFrames: 3, SilenceLimit: 8})

	for i := 0; i < 4; i++ {
		vad.Step(loudFrame())
	}
	if !vad.Speaking() {
		t.Fatal("expected active segment before reset")
	}

	vad.Reset()
	if vad.Speaking() {
		t.Error("expected idle detector after reset")
	}
	if st := vad.State(); st.SpeechRun != 0 || st.SilenceRun != 0 {
		t.Errorf("expected zeroed run lengths after reset, got %+v", st)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}

	samples := []int16{3, -4}
	// sqrt((9+16)/2) = sqrt(12.5)
	got := RMS(samples)
	if got < 3.53 || got > 3.54 {
		t.Errorf("RMS = %f, want about 3.5355", got)
	}
}

func TestDecodeEncodeS16LE(t *testing.T) {
	samples := Frame{0, 1, -1, 32767, -32768}
	data := EncodeS16LE(samples)
	decoded, err := DecodeS16LE(data)
	if err != nil {
		t.Fatalf("DecodeS16LE failed: %v", err)
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, decoded[i], samples[i])
		}
	}

	if _, err := DecodeS16LE([]byte{1}); err == nil {
		t.Error("expected error for odd-length PCM data")
	}
}
