package registry

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/ruleset/parser"
)

// DefaultDebounceInterval is the quiet period before a reload is triggered.
const DefaultDebounceInterval = 200 * time.Millisecond

// Watch reloads the registry whenever a ruleset file under the loaded
// directory changes. onReload, when non-nil, is called with each new
// snapshot after a successful reload; failed reloads are logged and the
// previous snapshot stays current. Watch blocks until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration, onReload func(*Snapshot)) error {
	r.mu.RLock()
	dir := r.dir
	r.mu.RUnlock()
	if dir == "" {
		return &RegistryError{Operation: "watch", Message: "no directory loaded"}
	}
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirectories(watcher, dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	d := NewDebouncer(debounce)
	defer d.Stop()

	r.logger.Info("Ruleset watcher started",
		"dir", dir,
		"debounce_ms", debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Ruleset watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !shouldProcessEvent(event) {
				continue
			}

			// New subdirectories need their own watch.
			if event.Op&fsnotify.Create == fsnotify.Create {
				_ = addDirectories(watcher, event.Name)
			}

			r.logger.Debug("Ruleset file event", "path", event.Name, "op", event.Op.String())

			d.Trigger(func() {
				if err := r.Reload(); err != nil {
					return
				}
				if onReload != nil {
					onReload(r.Snapshot())
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			r.logger.Error("Ruleset watcher error", "error", err)
		}
	}
}

// addDirectories registers root and every non-hidden subdirectory. A root
// that is a plain file is ignored.
func addDirectories(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	// Directory creates carry no extension but still need handling.
	if event.Op&fsnotify.Create == fsnotify.Create && filepath.Ext(base) == "" {
		return true
	}
	return parser.IsRulesetFile(base) && !isContractFile(base)
}

// Debouncer collects rapid events and runs the last callback only after a
// quiet period.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		stopped := d.stopped
		d.callback = nil
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels any pending callback. Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
