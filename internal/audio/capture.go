package audio

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// FrameSource delivers fixed-size PCM frames from a live capture stream.
type FrameSource interface {
	// ReadFrame blocks until one full frame is available. It returns
	// io.EOF when the stream ends.
	ReadFrame() (Frame, error)

	// Close releases the capture handle. It must be safe to call more
	// than once and on every exit path.
	Close() error
}

// ReaderSource reads raw s16le PCM from an io.Reader and slices it into
// frames.
type ReaderSource struct {
	r   io.Reader
	buf []byte
}

// NewReaderSource wraps a raw PCM byte stream.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r, buf: make([]byte, FrameBytes)}
}

// ReadFrame reads exactly one frame worth of bytes.
func (s *ReaderSource) ReadFrame() (Frame, error) {
	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	return DecodeS16LE(s.buf)
}

// Close is a no-op; the underlying reader is owned by the caller.
func (s *ReaderSource) Close() error { return nil }

// ExecSource captures microphone audio by spawning an external recorder
// process (arecord or similar) and reading raw PCM from its stdout.
type ExecSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	inner  *ReaderSource

	mu     sync.Mutex
	closed bool
}

// StartExecSource parses and starts the capture command. The command must
// write raw mono s16le PCM at 16 kHz to stdout.
func StartExecSource(command string) (*ExecSource, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty capture command")
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture command %q: %w", parts[0], err)
	}

	return &ExecSource{
		cmd:    cmd,
		stdout: stdout,
		inner:  NewReaderSource(stdout),
	}, nil
}

// ReadFrame reads one frame from the recorder process.
func (s *ExecSource) ReadFrame() (Frame, error) {
	return s.inner.ReadFrame()
}

// Close terminates the recorder process and releases the microphone.
// Safe to call repeatedly.
func (s *ExecSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	err := s.cmd.Wait()
	if err != nil {
		// Kill produces an exit error; the handle is released either way.
		return nil
	}
	return nil
}
