package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/lynx/internal/logging"
	"github.com/five82/lynx/internal/lynx"
)

// ErrAlreadyRunning is returned by Start while the Follower is active.
var ErrAlreadyRunning = errors.New("follower already running")

// Follower replays the end of a log file and then streams lines appended to
// it. It implements lynx.Source.
type Follower struct {
	path     string
	backfill int
	logger   *logging.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	// Owned by the follow goroutine.
	offset  int64
	partial string
}

// NewFollower returns an unstarted Follower for path that replays the last
// backfill lines on Start.
func NewFollower(path string, backfill int, logger *logging.Logger) *Follower {
	path = filepath.Clean(path)
	return &Follower{
		path:     path,
		backfill: backfill,
		logger:   logger.With("component", "logtail", "path", path),
	}
}

// Spawner returns a lynx.Spawner producing a fresh Follower for path on
// every call.
func Spawner(path string, backfill int, logger *logging.Logger) lynx.Spawner {
	return func() lynx.Source { return NewFollower(path, backfill, logger) }
}

// Start reads the backfill and begins watching the file. Lines are delivered
// on the Follower's goroutine.
func (f *Follower) Start(onLine lynx.LineFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return ErrAlreadyRunning
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so rotation and late creation are seen.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	lines, offset, err := Read(f.path, f.backfill)
	if err != nil {
		_ = watcher.Close()
		return err
	}

	f.offset = offset
	f.partial = ""
	f.running = true
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	f.logger.Info("following file", "backfill", len(lines), "offset", offset)

	go f.follow(watcher, f.stop, f.done, lines, onLine)
	return nil
}

func (f *Follower) follow(watcher *fsnotify.Watcher, stop, done chan struct{}, backfill []string, onLine lynx.LineFunc) {
	defer func() {
		if err := watcher.Close(); err != nil {
			f.logger.Debug("close watcher", "error", err)
		}
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
		close(done)
	}()

	for _, line := range backfill {
		onLine(line)
	}
	// Catch anything written between the backfill and the first event.
	f.readAppended(onLine)

	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				f.logger.Info("file moved or removed, waiting for it to reappear")
				f.offset = 0
				f.partial = ""
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				f.readAppended(onLine)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("watch error", "error", err)
		}
	}
}

// readAppended delivers complete lines written since the last read. A file
// that shrank was truncated and is read again from the start.
func (f *Follower) readAppended(onLine lynx.LineFunc) {
	file, err := os.Open(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("open log", "error", err)
		}
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		f.logger.Warn("stat log", "error", err)
		return
	}
	if info.Size() < f.offset {
		f.logger.Info("file truncated", "size", info.Size(), "offset", f.offset)
		f.offset = 0
		f.partial = ""
	}
	if info.Size() == f.offset {
		return
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		f.logger.Warn("seek log", "error", err)
		return
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		chunk, err := reader.ReadString('\n')
		f.offset += int64(len(chunk))
		if err != nil {
			// No trailing newline yet; keep it for the next write.
			f.partial += chunk
			if err != io.EOF {
				f.logger.Warn("read log", "error", err)
			}
			return
		}
		line := f.partial + strings.TrimRight(chunk, "\r\n")
		f.partial = ""
		onLine(line)
	}
}

// Stop ends watching and waits for the follow goroutine to exit.
func (f *Follower) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	done := f.done
	f.mu.Unlock()

	<-done
}

// Running reports whether the Follower is watching.
func (f *Follower) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}
