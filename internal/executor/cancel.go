package executor

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/autoissue/autoissue/internal/xlog"
)

var cancelLog = xlog.New("executor")

// pollInterval is the fallback cadence for detecting the cancel sentinel
// file when fsnotify missed the event, or never started, matching the
// teacher's NotificationManager.ShouldStop() double-check via os.Stat.
const pollInterval = 2 * time.Second

// CancelWatcher watches a single cancel sentinel file, generalized from
// the teacher's NotificationManager (which watches a directory of
// multiple signal files: kill, pause) down to the one cooperative signal
// autoissue needs. Creating the file at Path is equivalent to SIGINT.
type CancelWatcher struct {
	path string

	once    sync.Once
	done    chan struct{}
	closeCh chan struct{}
	watcher *fsnotify.Watcher
}

// NewCancelWatcher builds a watcher for <stateRoot>/sessions/<sessionId>.cancel.
// If fsnotify is unavailable or fails to watch the directory, it degrades
// to polling only, the same graceful-degradation the teacher applies when
// its own watcher can't start.
func NewCancelWatcher(stateRoot, sessionID string) (*CancelWatcher, error) {
	dir := filepath.Join(stateRoot, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	cw := &CancelWatcher{
		path:    filepath.Join(dir, sessionID+".cancel"),
		done:    make(chan struct{}),
		closeCh: make(chan struct{}),
	}

	if _, err := os.Stat(cw.path); err == nil {
		cw.trigger()
		return cw, nil
	}

	if w, err := fsnotify.NewWatcher(); err != nil {
		cancelLog.Warn("fsnotify unavailable, falling back to polling: %v", err)
	} else if err := w.Add(dir); err != nil {
		cancelLog.Warn("watch %s: %v", dir, err)
		w.Close()
	} else {
		cw.watcher = w
		go cw.watchEvents()
	}

	go cw.poll()
	return cw, nil
}

// Path returns the sentinel file path; callers writing it (e.g. a signal
// handler relaying SIGINT into the cancel mechanism) should write an
// RFC3339 timestamp as its contents, matching the teacher's SendKill.
func (cw *CancelWatcher) Path() string {
	return cw.path
}

func (cw *CancelWatcher) watchEvents() {
	for {
		select {
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == cw.path && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cw.trigger()
			}
		case _, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
		case <-cw.closeCh:
			return
		}
	}
}

func (cw *CancelWatcher) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := os.Stat(cw.path); err == nil {
				cw.trigger()
				return
			}
		case <-cw.closeCh:
			return
		case <-cw.done:
			return
		}
	}
}

func (cw *CancelWatcher) trigger() {
	cw.once.Do(func() { close(cw.done) })
}

// Done returns a channel closed the moment cancellation is detected,
// suitable for selecting alongside a completion channel.
func (cw *CancelWatcher) Done() <-chan struct{} {
	return cw.done
}

// Cancelled reports whether cancellation has been detected so far.
func (cw *CancelWatcher) Cancelled() bool {
	select {
	case <-cw.done:
		return true
	default:
		return false
	}
}

// Close stops the watcher's background goroutines. It does not remove the
// sentinel file.
func (cw *CancelWatcher) Close() {
	select {
	case <-cw.closeCh:
	default:
		close(cw.closeCh)
	}
	if cw.watcher != nil {
		cw.watcher.Close()
	}
}

// WriteCancelFile creates the cancel sentinel for sessionID under
// stateRoot, the cooperative-cancellation equivalent of sending SIGINT.
func WriteCancelFile(stateRoot, sessionID string) error {
	dir := filepath.Join(stateRoot, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, sessionID+".cancel")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0o644)
}
