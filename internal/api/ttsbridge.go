package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/transport"
)

// maxSpeakRunes caps the text sent to the synthesis provider. Responses
// are short confirmations; anything longer is a malformed request.
const maxSpeakRunes = 300

// relayChunkSize is the streaming copy buffer for provider audio.
const relayChunkSize = 8 * 1024

// TTSBridgeConfig configures the synthesis bridge.
type TTSBridgeConfig struct {
	ProviderURL string // ElevenLabs-compatible API base URL
	APIKey      string
	VoiceID     string
	ModelID     string
}

// TTSBridge terminates the synthesis websocket: it accepts speak
// requests, calls the synthesis provider over HTTP, and relays the
// audio stream back as binary frames followed by an end marker. One
// request is processed at a time per connection, in arrival order.
type TTSBridge struct {
	cfg      TTSBridgeConfig
	http     *http.Client
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewTTSBridge creates the bridge.
func NewTTSBridge(cfg TTSBridgeConfig, log zerolog.Logger) *TTSBridge {
	if cfg.ProviderURL == "" {
		cfg.ProviderURL = "https://api.elevenlabs.io"
	}
	return &TTSBridge{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:   log.With().Str("component", "tts_bridge").Logger(),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Handle upgrades the connection and serves speak requests until the
// client disconnects.
func (b *TTSBridge) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	b.track(conn, true)
	defer func() {
		b.track(conn, false)
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req transport.SpeakRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Type != "speak" {
			continue
		}
		text := sanitizeSpeakText(req.Text)
		if text == "" {
			continue
		}
		b.stream(r.Context(), conn, req, text)
	}
}

// stream makes one provider request and relays its audio to the client.
func (b *TTSBridge) stream(ctx context.Context, conn *websocket.Conn, req transport.SpeakRequest, text string) {
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = b.cfg.VoiceID
	}
	modelID := req.ModelID
	if modelID == "" {
		modelID = b.cfg.ModelID
	}
	outputFormat := req.OutputFormat
	if outputFormat == "" {
		outputFormat = "mp3_44100_128"
	}

	body, err := b.synthesize(ctx, voiceID, modelID, outputFormat, text)
	if err != nil {
		observability.RecordSynthesisRequest("error")
		b.log.Error().Err(err).Msg("synthesis request failed")
		b.sendControl(conn, map[string]string{"type": "error", "error": err.Error()})
		return
	}
	defer body.Close()

	buf := make([]byte, relayChunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				observability.RecordSynthesisRequest("client_gone")
				return
			}
			observability.RecordSynthesisBytes(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			observability.RecordSynthesisRequest("error")
			b.sendControl(conn, map[string]string{"type": "error", "error": "synthesis stream interrupted"})
			return
		}
	}

	observability.RecordSynthesisRequest("ok")
	b.sendControl(conn, map[string]string{"type": "end"})
}

type synthesisBody struct {
	ModelID       string         `json:"model_id"`
	Text          string         `json:"text"`
	OutputFormat  string         `json:"output_format"`
	VoiceSettings map[string]any `json:"voice_settings"`
}

func (b *TTSBridge) synthesize(ctx context.Context, voiceID, modelID, outputFormat, text string) (io.ReadCloser, error) {
	payload, err := json.Marshal(synthesisBody{
		ModelID:      modelID,
		Text:         text,
		OutputFormat: outputFormat,
		VoiceSettings: map[string]any{
			"stability":        0.45,
			"similarity_boost": 0.8,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s",
		strings.TrimRight(b.cfg.ProviderURL, "/"), voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", b.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis provider request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("synthesis provider returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp.Body, nil
}

func (b *TTSBridge) sendControl(conn *websocket.Conn, msg map[string]string) {
	if err := conn.WriteJSON(msg); err != nil {
		b.log.Debug().Err(err).Msg("control message not delivered")
	}
}

func (b *TTSBridge) track(conn *websocket.Conn, add bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if add {
		b.conns[conn] = struct{}{}
	} else {
		delete(b.conns, conn)
	}
}

// Shutdown closes every open bridge connection.
func (b *TTSBridge) Shutdown(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		conn.Close()
	}
	b.conns = make(map[*websocket.Conn]struct{})
	return nil
}

// sanitizeSpeakText collapses whitespace and caps the length.
func sanitizeSpeakText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > maxSpeakRunes {
		text = string(runes[:maxSpeakRunes])
	}
	return text
}
