// Package audio provides the capture-side audio primitives: fixed-size
// PCM frames, RMS energy, voice activity detection, and frame sources.
package audio

import (
	"fmt"
	"math"
)

const (
	// SampleRate is the fixed capture sample rate in Hz.
	SampleRate = 16000

	// FrameSamples is the fixed number of mono samples per frame.
	// 4096 samples at 16 kHz is a 256 ms cadence.
	FrameSamples = 4096

	// FrameBytes is the wire size of one frame (s16le).
	FrameBytes = FrameSamples * 2
)

// Frame is one fixed-size block of signed 16-bit mono PCM samples.
// Ownership transfers from capture to VAD to transport; a frame is
// discarded after it has been sent.
type Frame []int16

// DecodeS16LE converts little-endian 16-bit PCM bytes into samples.
func DecodeS16LE(data []byte) (Frame, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even, got %d", len(data))
	}
	samples := make(Frame, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples, nil
}

// EncodeS16LE converts samples back into little-endian 16-bit PCM bytes.
func EncodeS16LE(samples Frame) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(uint16(s) >> 8)
	}
	return data
}

// RMS computes the root-mean-square energy of a block of samples.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
