// Package watch reports filesystem mutations under the session log roots,
// coalesced so a burst of writes triggers one refresh instead of many.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lookout/internal/logging"
)

// Watcher emits batched sets of changed paths whenever .jsonl, .lock, or
// .json files are created, modified, or renamed under the watched roots.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   logging.Logger
	changes  chan []string

	mu      sync.Mutex
	watched map[string]bool
	stopped bool
	done    chan struct{}
}

// New starts watching the given roots, creating them if absent. Workspace
// subdirectories are watched as they appear.
func New(roots []string, debounce time.Duration, logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fs,
		debounce: debounce,
		logger:   logger,
		changes:  make(chan []string, 1),
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
	}
	for _, root := range roots {
		if err := os.MkdirAll(root, 0o755); err != nil {
			_ = fs.Close()
			return nil, err
		}
		if err := w.addDir(root); err != nil {
			_ = fs.Close()
			return nil, err
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				_ = w.addDir(filepath.Join(root, entry.Name()))
			}
		}
	}
	go w.run()
	return w, nil
}

// Changes delivers batched changed paths. The channel closes on Stop.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Stop releases the underlying watch handle. Safe to call repeatedly.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()
	_ = w.fs.Close()
	<-w.done
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.changes)

	pending := make(map[string]bool)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				w.flush(pending)
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addDir(event.Name)
					continue
				}
			}
			if !relevantPath(event.Name) {
				continue
			}
			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}
		case <-timerC:
			w.flush(pending)
			pending = make(map[string]bool)
			timer = nil
			timerC = nil
		case err, ok := <-w.fs.Errors:
			if !ok {
				continue
			}
			w.logger.Warn("watch error", logging.F("error", err))
		}
	}
}

func (w *Watcher) flush(pending map[string]bool) {
	if len(pending) == 0 {
		return
	}
	batch := make([]string, 0, len(pending))
	for path := range pending {
		batch = append(batch, path)
	}
	select {
	case w.changes <- batch:
	default:
		// A batch is already queued; the consumer rescans everything on each
		// delivery, so dropping this one loses nothing.
	}
}

func (w *Watcher) addDir(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.watched[path] {
		return nil
	}
	if err := w.fs.Add(path); err != nil {
		return err
	}
	w.watched[path] = true
	return nil
}

func relevantPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".lock", ".json":
		return true
	default:
		return false
	}
}
