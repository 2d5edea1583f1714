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

// RecognitionSession is the client side of the recognition channel.
// Audio frames for one utterance are written in capture order; an
// end-of-segment marker closes the utterance; final transcripts arrive on
// Finals. The connection is dialed lazily on the first send and redialed
// lazily after a failure.
type RecognitionSession struct {
	url    string
	dialer *websocket.Dialer
	gate   *resilience.RedialGate
	log    zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	dedupMu sync.Mutex
	dedup   *transcriptDedup

	finals chan string

	closeOnce sync.Once
	closed    chan struct{}
}

// RecognitionConfig configures a recognition session.
type RecognitionConfig struct {
	URL            string
	DedupWindow    time.Duration // duplicate-final suppression window
	RedialInterval time.Duration // minimum interval between lazy redials
}

// NewRecognitionSession creates a session. No connection is made until
// the first send.
func NewRecognitionSession(cfg RecognitionConfig, log zerolog.Logger) *RecognitionSession {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 1200 * time.Millisecond
	}
	if cfg.RedialInterval <= 0 {
		cfg.RedialInterval = time.Second
	}
	return &RecognitionSession{
		url:    cfg.URL,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		gate:   resilience.NewRedialGate(cfg.RedialInterval),
		log:    log.With().Str("channel", "recognition").Logger(),
		dedup:  newTranscriptDedup(cfg.DedupWindow),
		finals: make(chan string, 16),
		closed: make(chan struct{}),
	}
}

// SendFrame writes one binary PCM frame upstream. A write failure drops
// the connection; the in-flight utterance is not retried.
func (s *RecognitionSession) SendFrame(pcm []byte) error {
	conn, err := s.ensureConn()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		s.dropConn(conn)
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

// EndSegment writes the end-of-segment marker for the current utterance.
// With no live connection there is nothing to end.
func (s *RecognitionSession) EndSegment() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.WriteJSON(controlMessage{Type: typeEndOfSegment}); err != nil {
		s.dropConn(conn)
		return fmt.Errorf("send end-of-segment: %w", err)
	}
	return nil
}

// Finals delivers deduplicated final transcripts.
func (s *RecognitionSession) Finals() <-chan string {
	return s.finals
}

// Connected reports whether a connection is currently live.
func (s *RecognitionSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close shuts the channel down. In-flight data is dropped.
func (s *RecognitionSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	})
	return nil
}

func (s *RecognitionSession) ensureConn() (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return nil, fmt.Errorf("recognition session closed")
	default:
	}

	if s.conn != nil {
		return s.conn, nil
	}
	if !s.gate.Allow() {
		return nil, fmt.Errorf("recognizer unavailable, redial deferred")
	}

	conn, _, err := s.dialer.Dial(s.url, nil)
	if err != nil {
		observability.RecordReconnect("recognition", "error")
		return nil, fmt.Errorf("dial recognizer: %w", err)
	}
	observability.RecordReconnect("recognition", "ok")
	s.gate.Reset()
	s.conn = conn
	go s.readLoop(conn)
	s.log.Info().Str("url", s.url).Msg("recognition channel connected")
	return conn, nil
}

func (s *RecognitionSession) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

func (s *RecognitionSession) readLoop(conn *websocket.Conn) {
	defer s.dropConn(conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.log.Warn().Err(err).Msg("recognition channel closed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn().Err(err).Msg("unparseable recognizer message")
			continue
		}

		switch msg.Type {
		case typePartial:
			observability.RecordTranscript("partial")
		case typeFinal:
			s.dedupMu.Lock()
			ok := s.dedup.admit(msg.Text, time.Now())
			s.dedupMu.Unlock()
			if !ok {
				observability.RecordTranscript("duplicate")
				s.log.Debug().Str("text", msg.Text).Msg("duplicate final discarded")
				continue
			}
			observability.RecordTranscript("final")
			select {
			case s.finals <- msg.Text:
			default:
				s.log.Warn().Msg("finals channel full, dropping transcript")
			}
		}
	}
}
