package orchestrator

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// SignalManager watches a directory for per-session cancel files. Dropping
// a file named cancel-<sessionID> into the directory cancels any in-flight
// turn for that session.
type SignalManager struct {
	signalsDir string

	mu        sync.RWMutex
	cancelled map[string]bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

const cancelPrefix = "cancel-"

// NewSignalManager creates a manager watching baseDir/signals. The watcher
// is best effort: if it cannot be started the manager still works through
// direct file checks.
func NewSignalManager(baseDir string) (*SignalManager, error) {
	signalsDir := filepath.Join(baseDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sm := &SignalManager{
		signalsDir: signalsDir,
		cancelled:  make(map[string]bool),
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - stat fallback still works.
		return sm, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return sm, nil
	}
	sm.watcher = watcher

	go sm.watchSignals()

	return sm, nil
}

// watchSignals monitors the signals directory for cancel files.
func (sm *SignalManager) watchSignals() {
	for {
		select {
		case <-sm.done:
			return
		case event, ok := <-sm.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if session, ok := sessionFromSignal(base); ok {
				sm.mu.Lock()
				sm.cancelled[session] = true
				sm.mu.Unlock()
			}
		case <-sm.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

func sessionFromSignal(name string) (string, bool) {
	if len(name) <= len(cancelPrefix) || name[:len(cancelPrefix)] != cancelPrefix {
		return "", false
	}
	return name[len(cancelPrefix):], true
}

// Cancelled reports whether a cancel signal exists for the session.
// It checks the file directly in case the watcher missed the event.
func (sm *SignalManager) Cancelled(sessionID string) bool {
	path := filepath.Join(sm.signalsDir, cancelPrefix+sessionID)
	if _, err := os.Stat(path); err == nil {
		sm.mu.Lock()
		sm.cancelled[sessionID] = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.cancelled[sessionID]
}

// CancelSession creates the cancel file for a session.
func (sm *SignalManager) CancelSession(sessionID string) error {
	path := filepath.Join(sm.signalsDir, cancelPrefix+sessionID)
	return os.WriteFile(path, []byte{}, 0644)
}

// Clear removes a session's cancel file and resets its state.
func (sm *SignalManager) Clear(sessionID string) {
	sm.mu.Lock()
	delete(sm.cancelled, sessionID)
	sm.mu.Unlock()

	os.Remove(filepath.Join(sm.signalsDir, cancelPrefix+sessionID))
}

// Close shuts down the signal manager.
func (sm *SignalManager) Close() {
	close(sm.done)
	if sm.watcher != nil {
		sm.watcher.Close()
	}
}
