package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func dialBridge(t *testing.T, providerURL string) (*websocket.Conn, func()) {
	t.Helper()
	bridge := NewTTSBridge(TTSBridgeConfig{
		ProviderURL: providerURL,
		APIKey:      "test-key",
		VoiceID:     "voice-1",
		ModelID:     "model-1",
	}, zerolog.Nop())

	ts := httptest.NewServer(http.HandlerFunc(bridge.Handle))
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial bridge: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestTTSBridge_StreamsAudio(t *testing.T) {
	audio := []byte("fake-mpeg-audio-bytes")
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasPrefix(r.URL.Path, "/v1/text-to-speech/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Text    string `json:"text"`
			ModelID string `json:"model_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode provider body: %v", err)
		}
		if body.Text != "Je 14 hodin." {
			t.Errorf("provider got text %q", body.Text)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer provider.Close()

	conn, cleanup := dialBridge(t, provider.URL)
	defer cleanup()

	err := conn.WriteJSON(map[string]string{"type": "speak", "text": "Je 14 hodin."})
	if err != nil {
		t.Fatal(err)
	}

	var got []byte
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if msgType == websocket.BinaryMessage {
			got = append(got, data...)
			continue
		}
		var ctrl struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &ctrl); err != nil {
			t.Fatalf("bad control message %s", data)
		}
		if ctrl.Type != "end" {
			t.Fatalf("expected end, got %+v", ctrl)
		}
		break
	}
	if string(got) != string(audio) {
		t.Errorf("relayed %q, want %q", got, audio)
	}
}

func TestTTSBridge_ProviderError(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer provider.Close()

	conn, cleanup := dialBridge(t, provider.URL)
	defer cleanup()

	if err := conn.WriteJSON(map[string]string{"type": "speak", "text": "ahoj svete"}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var ctrl struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &ctrl); err != nil {
		t.Fatalf("bad control message %s", data)
	}
	if ctrl.Type != "error" || ctrl.Error == "" {
		t.Errorf("expected error control message, got %+v", ctrl)
	}
}

func TestTTSBridge_IgnoresMalformedRequests(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for malformed requests")
	}))
	defer provider.Close()

	conn, cleanup := dialBridge(t, provider.URL)
	defer cleanup()

	// Wrong type, missing text, and non-JSON are all skipped silently.
	conn.WriteJSON(map[string]string{"type": "noise", "text": "x"})
	conn.WriteJSON(map[string]string{"type": "speak"})
	conn.WriteMessage(websocket.TextMessage, []byte("not json"))

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected no response to malformed requests")
	}
}

func TestSanitizeSpeakText(t *testing.T) {
	if got := sanitizeSpeakText("  ahoj \n\n svete  "); got != "ahoj svete" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("a", 400)
	if got := sanitizeSpeakText(long); len([]rune(got)) != maxSpeakRunes {
		t.Errorf("got %d runes", len([]rune(got)))
	}
}
