package playback

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ExecSink plays audio by piping chunks into an external player process
// (mpg123 or similar) on stdin. The process is spawned on the first
// write after a stop, so cancellation is an immediate kill.
type ExecSink struct {
	command string
	log     zerolog.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewExecSink creates a sink around the given player command line.
func NewExecSink(command string, log zerolog.Logger) *ExecSink {
	return &ExecSink{
		command: command,
		log:     log.With().Str("component", "exec_sink").Logger(),
	}
}

// Play writes one chunk to the player process, spawning it if needed.
func (s *ExecSink) Play(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		if err := s.spawnLocked(); err != nil {
			return err
		}
	}
	if _, err := s.stdin.Write(chunk); err != nil {
		s.teardownLocked()
		return fmt.Errorf("write to player: %w", err)
	}
	return nil
}

// Stop kills the player process, cutting output immediately. Safe to call
// with no process running.
func (s *ExecSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	return nil
}

// Close is equivalent to Stop.
func (s *ExecSink) Close() error {
	return s.Stop()
}

func (s *ExecSink) spawnLocked() error {
	parts := strings.Fields(s.command)
	if len(parts) == 0 {
		return fmt.Errorf("empty playback command")
	}
	cmd := exec.Command(parts[0], parts[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("player stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player command %q: %w", parts[0], err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.log.Debug().Str("command", parts[0]).Msg("player process started")
	return nil
}

func (s *ExecSink) teardownLocked() {
	if s.cmd == nil {
		return
	}
	s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
}
