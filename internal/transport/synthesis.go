package transport

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/resilience"
)

// SynthesisMessage is one downstream event on the synthesis channel.
// Exactly one of Data, End, Err is meaningful. Generation ties the event
// to the playback session that requested it; stale generations must be
// dropped by the consumer.
type SynthesisMessage struct {
	Generation uint64
	Data       []byte
	End        bool
	Err        string
}

// SynthesisConfig configures a synthesis session.
type SynthesisConfig struct {
	URL            string
	VoiceID        string
	ModelID        string
	RedialInterval time.Duration
}

// SynthesisSession is the client side of the synthesis channel. One
// speak request streams back ordered binary audio chunks terminated by an
// end or error message. Speaking again while a stream is in flight tears
// the connection down first, so chunks of the cancelled stream can never
// be delivered under the new generation.
type SynthesisSession struct {
	cfg    SynthesisConfig
	dialer *websocket.Dialer
	gate   *resilience.RedialGate
	log    zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	streaming bool
	gen       uint64

	messages chan SynthesisMessage

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSynthesisSession creates a session. No connection is made until the
// first Speak.
func NewSynthesisSession(cfg SynthesisConfig, log zerolog.Logger) *SynthesisSession {
	if cfg.RedialInterval <= 0 {
		cfg.RedialInterval = time.Second
	}
	return &SynthesisSession{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		gate:     resilience.NewRedialGate(cfg.RedialInterval),
		log:      log.With().Str("channel", "synthesis").Logger(),
		messages: make(chan SynthesisMessage, 32),
		closed:   make(chan struct{}),
	}
}

// Speak requests synthesis of text under the given playback generation.
// Any stream still in flight is cancelled by closing its connection.
func (s *SynthesisSession) Speak(gen uint64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return fmt.Errorf("synthesis session closed")
	default:
	}

	if s.streaming && s.conn != nil {
		// Abort the in-flight stream; its read loop exits with the
		// connection and in-flight chunks die with it.
		s.conn.Close()
		s.conn = nil
		s.streaming = false
	}

	conn, err := s.ensureConnLocked()
	if err != nil {
		return err
	}

	s.gen = gen
	req := SpeakRequest{
		Type:    typeSpeak,
		Text:    text,
		VoiceID: s.cfg.VoiceID,
		ModelID: s.cfg.ModelID,
	}
	if err := conn.WriteJSON(req); err != nil {
		s.conn = nil
		conn.Close()
		return fmt.Errorf("send speak request: %w", err)
	}
	s.streaming = true
	return nil
}

// Messages delivers downstream synthesis events.
func (s *SynthesisSession) Messages() <-chan SynthesisMessage {
	return s.messages
}

// Connected reports whether a connection is currently live.
func (s *SynthesisSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close shuts the channel down, dropping any stream in flight.
func (s *SynthesisSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.streaming = false
		s.mu.Unlock()
	})
	return nil
}

func (s *SynthesisSession) ensureConnLocked() (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	if !s.gate.Allow() {
		return nil, fmt.Errorf("synthesis backend unavailable, redial deferred")
	}

	conn, _, err := s.dialer.Dial(s.cfg.URL, nil)
	if err != nil {
		observability.RecordReconnect("synthesis", "error")
		return nil, fmt.Errorf("dial synthesis backend: %w", err)
	}
	observability.RecordReconnect("synthesis", "ok")
	s.gate.Reset()
	s.conn = conn
	go s.readLoop(conn)
	s.log.Info().Str("url", s.cfg.URL).Msg("synthesis channel connected")
	return conn, nil
}

func (s *SynthesisSession) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.streaming = false
	}
	s.mu.Unlock()
	conn.Close()
}

func (s *SynthesisSession) readLoop(conn *websocket.Conn) {
	defer s.dropConn(conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.log.Warn().Err(err).Msg("synthesis channel closed")
			}
			return
		}

		s.mu.Lock()
		stale := s.conn != conn
		gen := s.gen
		s.mu.Unlock()
		if stale {
			// Chunk from a cancelled stream raced the teardown.
			observability.RecordPlaybackChunk("stale")
			continue
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.deliver(SynthesisMessage{Generation: gen, Data: data})
		case websocket.TextMessage:
			var msg controlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.log.Warn().Err(err).Msg("unparseable synthesis message")
				continue
			}
			switch msg.Type {
			case typeEnd:
				s.mu.Lock()
				if s.conn == conn {
					s.streaming = false
				}
				s.mu.Unlock()
				s.deliver(SynthesisMessage{Generation: gen, End: true})
			case typeError:
				s.mu.Lock()
				if s.conn == conn {
					s.streaming = false
				}
				s.mu.Unlock()
				s.deliver(SynthesisMessage{Generation: gen, Err: msg.Error})
			}
		}
	}
}

func (s *SynthesisSession) deliver(msg SynthesisMessage) {
	select {
	case s.messages <- msg:
	default:
		s.log.Warn().Msg("synthesis message channel full, dropping event")
	}
}
