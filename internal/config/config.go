package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice pipeline. Both binaries
// (voiced and voice-client) share one struct; unused fields keep their
// defaults.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Controller base URL consumed by the voice client. The client POSTs
	// recognized commands to <URL>/api/voice/execute.
	ControllerURL string `envconfig:"CONTROLLER_URL" default:"http://localhost:8080"`

	// Recognition backend websocket endpoint (binary PCM frames up, JSON
	// partial/final transcripts down).
	RecognizerURL string `envconfig:"RECOGNIZER_URL" default:"ws://localhost:8090/ws/stt"`

	// Synthesis stream websocket endpoint. Defaults to the controller's
	// own /ws/tts bridge.
	SynthesisURL string `envconfig:"SYNTHESIS_URL" default:"ws://localhost:8080/ws/tts"`

	// ElevenLabs-compatible synthesis provider used by the /ws/tts bridge.
	TTSAPIKey  string `envconfig:"ELEVENLABS_API_KEY" default:""`
	TTSVoiceID string `envconfig:"ELEVENLABS_VOICE_ID" default:"12CHcREbuPdJY02VY7zT"`
	TTSModelID string `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_multilingual_v2"`
	TTSBaseURL string `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`

	// Audio capture configuration. Frames are mono s16le at 16 kHz.
	// CaptureCommand "-" reads raw PCM from stdin instead of spawning a
	// recorder process.
	CaptureCommand  string `envconfig:"CAPTURE_COMMAND" default:"arecord -q -f S16_LE -r 16000 -c 1 -t raw"`
	PlaybackCommand string `envconfig:"PLAYBACK_COMMAND" default:"mpg123 -q -"`

	// Voice activity detection policy.
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS threshold for speech
	VADMinSpeechFrames int     `envconfig:"VAD_MIN_SPEECH_FRAMES" default:"3"`    // consecutive speech frames before speech-start
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"8"`       // consecutive silence frames before speech-end

	// Barge-in: stricter RMS threshold applied while synthesized speech
	// is playing.
	BargeInThreshold float64 `envconfig:"BARGE_IN_THRESHOLD" default:"250.0"`

	// Cooldown window extensions in milliseconds. Incoming audio is not
	// treated as command speech until the window expires.
	CooldownSynthStartMs int `envconfig:"COOLDOWN_SYNTH_START_MS" default:"2500"`
	CooldownSynthEndMs   int `envconfig:"COOLDOWN_SYNTH_END_MS" default:"1000"`
	CooldownBargeInMs    int `envconfig:"COOLDOWN_BARGE_IN_MS" default:"200"`

	// Duplicate suppression window for final transcripts (guards against
	// transport-level retransmission).
	TranscriptDedupMs int `envconfig:"TRANSCRIPT_DEDUP_MS" default:"1200"`

	// Minimum interval between lazy reconnect attempts per channel.
	RedialMinIntervalMs int `envconfig:"REDIAL_MIN_INTERVAL_MS" default:"1000"`

	// Device registry (NATS).
	NATSURL             string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`
	DeviceSubjectPrefix string `envconfig:"DEVICE_SUBJECT_PREFIX" default:"home.device"`

	// Rooms catalogue and notes store files.
	RoomsFile string `envconfig:"ROOMS_FILE" default:"rooms.json"`
	NotesFile string `envconfig:"NOTES_FILE" default:"notes.json"`

	// Weather provider.
	WeatherAPIKey string `envconfig:"WEATHER_API_KEY" default:""`
	HomeCity      string `envconfig:"HOME_CITY" default:"Prague"`

	// Media backend (Spotify Web API).
	SpotifyBaseURL string `envconfig:"SPOTIFY_BASE_URL" default:"https://api.spotify.com"`
	SpotifyMarket  string `envconfig:"SPOTIFY_MARKET" default:"CZ"`

	// Resilience configuration.
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds

	// Observability configuration.
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from the environment, loading a .env file
// first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// ValidateServer checks the fields the controller server cannot run
// without.
func (c *Config) ValidateServer() error {
	if c.TTSAPIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required for the synthesis bridge")
	}
	return nil
}

// ValidateClient checks the fields the capture client cannot run without.
func (c *Config) ValidateClient() error {
	if c.RecognizerURL == "" {
		return fmt.Errorf("RECOGNIZER_URL is required")
	}
	if c.VADMinSpeechFrames < 1 {
		return fmt.Errorf("VAD_MIN_SPEECH_FRAMES must be at least 1")
	}
	if c.VADSilenceFrames < 1 {
		return fmt.Errorf("VAD_SILENCE_FRAMES must be at least 1")
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
