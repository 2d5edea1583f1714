// Package transport implements the two duplex streaming channels of the
// voice pipeline: the recognition channel (binary PCM frames upstream,
// JSON transcript messages downstream) and the synthesis channel (JSON
// speak requests upstream, binary audio chunks downstream). Both channels
// reconnect lazily on the next send, never in the background.
package transport

// Control message types shared by both channels.
const (
	typeEndOfSegment = "eos"
	typePartial      = "partial"
	typeFinal        = "final"
	typeSpeak        = "speak"
	typeEnd          = "end"
	typeError        = "error"
)

// controlMessage is the JSON envelope for text frames on either channel.
type controlMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// SpeakRequest is the upstream synthesis request.
type SpeakRequest struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	VoiceID      string `json:"voiceId,omitempty"`
	ModelID      string `json:"modelId,omitempty"`
	OutputFormat string `json:"outputFormat,omitempty"`
}
