package logcat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/five82/lynx/internal/logging"
	"github.com/five82/lynx/internal/lynx"
)

// DefaultCommand streams the device log with the timestamped format the trace
// parser expects.
var DefaultCommand = []string{"adb", "logcat", "-v", "time"}

var (
	// ErrEmptyCommand is returned by Start when no command was configured.
	ErrEmptyCommand = errors.New("empty command")
	// ErrAlreadyRunning is returned by Start while the command is running.
	ErrAlreadyRunning = errors.New("source already running")
)

// Source runs a command and forwards each line of its stdout.
type Source struct {
	argv   []string
	runID  string
	logger *logging.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	running bool
	stopped bool
	done    chan struct{}
}

// New returns an unstarted Source for argv.
func New(argv []string, logger *logging.Logger) *Source {
	runID := uuid.NewString()
	return &Source{
		argv:   append([]string(nil), argv...),
		runID:  runID,
		logger: logger.With("component", "logcat", "run_id", runID),
	}
}

// Spawner returns a lynx.Spawner producing a fresh Source for argv on every
// call.
func Spawner(argv []string, logger *logging.Logger) lynx.Spawner {
	argv = append([]string(nil), argv...)
	return func() lynx.Source { return New(argv, logger) }
}

// RunID identifies this Source in log records.
func (s *Source) RunID() string { return s.runID }

// Start launches the command and reads its stdout on a new goroutine. A
// Source whose command has exited or been stopped can be started again.
func (s *Source) Start(onLine lynx.LineFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if len(s.argv) == 0 {
		return ErrEmptyCommand
	}

	cmd := exec.Command(s.argv[0], s.argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.argv[0], err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.running = true
	s.stopped = false
	s.done = make(chan struct{})
	s.logger.Info("source started", "command", s.argv, "pid", cmd.Process.Pid)

	go s.read(stdout, onLine)
	return nil
}

func (s *Source) read(stdout io.Reader, onLine lynx.LineFunc) {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	s.mu.Lock()
	stopped := s.stopped
	s.running = false
	close(done)
	s.mu.Unlock()

	switch {
	case stopped:
		s.logger.Info("source stopped")
	case scanErr != nil:
		s.logger.Warn("source read failed", "error", scanErr)
	case waitErr != nil:
		s.logger.Warn("source exited", "error", waitErr)
	default:
		s.logger.Info("source exited")
	}
}

// Stop kills the command and waits for the reader to finish. Stopping a
// Source that is not running does nothing.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if err := s.cmd.Process.Kill(); err != nil {
		s.logger.Debug("kill source", "error", err)
	}
	// A child that inherited stdout would otherwise keep the reader blocked.
	_ = s.stdout.Close()
	done := s.done
	s.mu.Unlock()

	<-done
}

// Running reports whether the command is still producing output.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
