package playlist

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Element-Re/crossblade/api"
	"github.com/Element-Re/crossblade/pkg/events"
)

const watchDebounce = 200 * time.Millisecond

// Watcher reloads playlist files edited outside the player and publishes
// the changed sounds so playing runtimes pick the edits up live. Editor
// saves arrive as bursts of write events; changes are debounced per file.
type Watcher struct {
	manager *Manager
	bus     *events.Bus

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher over the manager's playlist directory.
func NewWatcher(manager *Manager, bus *events.Bus) *Watcher {
	return &Watcher{
		manager: manager,
		bus:     bus,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches the playlist directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.manager.BasePath()); err != nil {
		return err
	}
	slog.Info("watching playlist directory", "path", w.manager.BasePath())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("playlist watch error", "err", err)
		}
	}
}

// schedule (re)arms the debounce timer for one playlist file.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.reload(path)
	})
}

func (w *Watcher) reload(path string) {
	pl, err := w.manager.Reload(path)
	if err != nil {
		slog.Warn("playlist reload failed", "path", path, "err", err)
		return
	}
	slog.Info("playlist reloaded", "playlist", pl.ID, "sounds", len(pl.Sounds))

	for i := range pl.Sounds {
		def := pl.Sounds[i]
		w.bus.Publish(api.Signal{Type: api.SignalSoundUpdated, Payload: &def})
	}
}
