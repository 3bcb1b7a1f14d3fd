package monitor

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcp-servicenow/internal/models"
	"mcp-servicenow/pkg/logging"
)

// DefaultDebounceDelay coalesces the bursts of events editors produce on save
const DefaultDebounceDelay = 500 * time.Millisecond

// FileMonitor watches individual files for changes. Each file's parent
// directory is watched so that editors replacing the file by rename are seen.
type FileMonitor struct {
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	logger        *logging.StructuredLogger

	mu        sync.Mutex
	callbacks map[string][]func(models.FileEvent)
	dirs      map[string]bool
	timers    map[string]*time.Timer
	started   bool
	stopped   bool
}

// NewFileMonitor creates a new file monitor
func NewFileMonitor(logger *logging.StructuredLogger) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = logging.NewStructuredLogger("file_monitor")
	}

	return &FileMonitor{
		watcher:       watcher,
		debounceDelay: DefaultDebounceDelay,
		logger:        logger,
		callbacks:     make(map[string][]func(models.FileEvent)),
		dirs:          make(map[string]bool),
		timers:        make(map[string]*time.Timer),
	}, nil
}

// SetDebounceDelay changes the debounce window; call before WatchFile
func (fm *FileMonitor) SetDebounceDelay(d time.Duration) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.debounceDelay = d
}

// WatchFile invokes callback after path is created, written, removed or renamed
func (fm *FileMonitor) WatchFile(path string, callback func(models.FileEvent)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.stopped {
		return fmt.Errorf("file monitor is stopped")
	}

	if !fm.dirs[dir] {
		if err := fm.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		fm.dirs[dir] = true
	}
	fm.callbacks[abs] = append(fm.callbacks[abs], callback)

	if !fm.started {
		fm.started = true
		go fm.monitorEvents()
	}

	fm.logger.WithContext("path", abs).Info("Started watching file")
	return nil
}

// StopWatching stops the monitor; it is safe to call more than once
func (fm *FileMonitor) StopWatching() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.stopped {
		return nil
	}
	fm.stopped = true
	for name, timer := range fm.timers {
		timer.Stop()
		delete(fm.timers, name)
	}
	return fm.watcher.Close()
}

// monitorEvents processes file system events with debouncing
func (fm *FileMonitor) monitorEvents() {
	for {
		select {
		case event, ok := <-fm.watcher.Events:
			if !ok {
				return
			}
			fm.schedule(event)

		case err, ok := <-fm.watcher.Errors:
			if !ok {
				return
			}
			fm.logger.WithError(err).Warn("File watcher error")
		}
	}
}

func (fm *FileMonitor) schedule(event fsnotify.Event) {
	name := filepath.Clean(event.Name)

	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.stopped || len(fm.callbacks[name]) == 0 {
		return
	}

	if timer, exists := fm.timers[name]; exists {
		timer.Stop()
	}
	fm.timers[name] = time.AfterFunc(fm.debounceDelay, func() {
		fm.mu.Lock()
		delete(fm.timers, name)
		callbacks := append([]func(models.FileEvent){}, fm.callbacks[name]...)
		stopped := fm.stopped
		fm.mu.Unlock()

		if !stopped {
			fm.processEvent(event, name, callbacks)
		}
	})
}

// processEvent converts fsnotify events to FileEvent and calls callbacks
func (fm *FileMonitor) processEvent(event fsnotify.Event, name string, callbacks []func(models.FileEvent)) {
	var eventType string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = "create"
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = "modify"
	case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = "delete"
	default:
		return
	}

	fileEvent := models.FileEvent{Type: eventType, Path: name}
	for _, callback := range callbacks {
		callback(fileEvent)
	}
}
