package server

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"prepforge/internal/errors"
)

// fileWatcher watches certificate files and fires onChange once per burst of
// filesystem events. Certificates are usually rotated by atomic rename, so
// the parent directories are watched rather than the files themselves.
type fileWatcher struct {
	paths    []string
	debounce time.Duration
	onChange func()
	logger   *errors.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending *time.Timer
	stop    chan struct{}
	running bool
}

func newFileWatcher(paths []string, debounce time.Duration, onChange func(), logger *errors.Logger) *fileWatcher {
	if debounce <= 0 {
		debounce = time.Second
	}

	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			kept = append(kept, p)
		}
	}

	return &fileWatcher{
		paths:    kept,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start registers the directory watches and launches the event loop.
func (fw *fileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("certificate file watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for _, p := range fw.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	fw.fsw = fsw
	fw.running = true
	go fw.loop()

	if fw.logger != nil {
		fw.logger.Info("Certificate file watcher started",
			"files", fw.paths,
			"debounce_delay", fw.debounce)
	}

	return nil
}

// Stop halts the event loop and releases the filesystem watches.
func (fw *fileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	close(fw.stop)
	if fw.pending != nil {
		fw.pending.Stop()
	}
	err := fw.fsw.Close()
	fw.running = false

	if fw.logger != nil {
		fw.logger.Info("Certificate file watcher stopped")
	}

	return err
}

// Running reports whether the watcher loop is active.
func (fw *fileWatcher) Running() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

// Files returns the watched certificate paths.
func (fw *fileWatcher) Files() []string {
	return fw.paths
}

func (fw *fileWatcher) loop() {
	for {
		select {
		case event, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if fw.relevant(event) {
				fw.schedule()
			}

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			if fw.logger != nil {
				fw.logger.LogError(err, "Certificate file watcher error")
			}

		case <-fw.stop:
			return
		}
	}
}

// relevant reports whether the event touches one of the watched files. Base
// names are compared as well because editors and secret mounts write through
// temporary names before renaming into place.
func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}

	for _, p := range fw.paths {
		if event.Name == p || filepath.Base(event.Name) == filepath.Base(p) {
			return true
		}
	}
	return false
}

// schedule arms the debounce timer, restarting it if a burst is in progress.
func (fw *fileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.pending != nil {
		fw.pending.Stop()
	}
	fw.pending = time.AfterFunc(fw.debounce, func() {
		if fw.logger != nil {
			fw.logger.Info("Certificate files changed, triggering reload")
		}
		fw.onChange()
	})
}
