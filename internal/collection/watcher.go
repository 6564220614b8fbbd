package collection

import (
	"collectioninject/internal/logging"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LoadFunc reads the current set of requests, typically from the manifest.
type LoadFunc func(ctx context.Context) ([]Request, error)

// ResultFunc receives the outcome of every re-sync.
type ResultFunc func(*Result, error)

// Watcher re-applies the manifest whenever it changes.
// It watches the manifest's directory so editors that save by rename are seen.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	injector    *Injector
	load        LoadFunc
	onResult    ResultFunc
	path        string
	pending     time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Syncs         int
	Writes        int
	Errors        int
	LastEventTime time.Time
	LastEventType string
	LastSyncTime  time.Time
}

// NewWatcher creates a watcher for the manifest at path. onResult may be nil.
func NewWatcher(path string, injector *Injector, load LoadFunc, onResult ResultFunc, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		injector:    injector,
		load:        load,
		onResult:    onResult,
		path:        abs,
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start watches the manifest directory and runs the event loop in a
// goroutine. It does not perform an initial sync; call Sync for that.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Watch("watching manifest: %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("watcher stopped")
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-w.stopCh:
			logging.WatchDebug("stop signal received")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				logging.Watch("event channel closed")
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				logging.Watch("error channel closed")
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebounced(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	case event.Op&fsnotify.Remove != 0:
		// Removing the manifest leaves the module as it is.
		logging.WatchDebug("manifest removed: %s", event.Name)
		return
	default:
		return
	}

	logging.WatchDebug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	now := time.Now()
	w.stats.Events++
	w.stats.LastEventTime = now
	w.stats.LastEventType = eventType
	w.pending = now
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	w.Sync(ctx)
}

// Sync loads the requests and applies them once.
func (w *Watcher) Sync(ctx context.Context) (*Result, error) {
	res, err := w.sync(ctx)

	w.mu.Lock()
	w.stats.Syncs++
	w.stats.LastSyncTime = time.Now()
	if err != nil {
		w.stats.Errors++
	} else if res.Written {
		w.stats.Writes++
	}
	w.mu.Unlock()

	if err != nil {
		logging.Get(logging.CategoryWatch).Error("sync failed: %v", err)
	} else {
		logging.Watch("synced %d collection(s), changed=%v", len(res.Collections), res.Changed)
	}
	if w.onResult != nil {
		w.onResult(res, err)
	}
	return res, err
}

func (w *Watcher) sync(ctx context.Context) (*Result, error) {
	reqs, err := w.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return w.injector.Apply(ctx, reqs...)
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching returns true if the watcher is currently running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
