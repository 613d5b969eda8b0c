package modpack

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of filesystem events an editor save
// produces into one reload.
const debounceWindow = 250 * time.Millisecond

// Watcher reloads mods when their source files change on disk.
type Watcher struct {
	manager *Manager
	fsw     *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer // mod name -> debounce timer

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher over the manager's loaded mods. The mod
// search paths and each loaded mod's directory are watched.
func NewWatcher(manager *Manager, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		manager: manager,
		fsw:     fsw,
		logger:  logger,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}

	for _, path := range manager.Loader().Paths() {
		if err := fsw.Add(path); err != nil {
			// Missing search paths are fine; they may appear later.
			logger.Debug("watch path unavailable", "path", path, "error", err)
		}
	}
	for _, mod := range manager.List() {
		if err := fsw.Add(mod.Manifest().Path()); err != nil {
			logger.Warn("cannot watch mod directory", "mod", mod.Name(), "error", err)
		}
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Watch adds a directory to the watch set.
func (w *Watcher) Watch(dir string) error {
	return w.fsw.Add(dir)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.mu.Unlock()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.handleEvent(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("mod watcher error", "error", err)
		}
	}
}

// handleEvent maps a changed path onto a loaded mod and schedules its
// reload.
func (w *Watcher) handleEvent(path string) {
	name := w.modForPath(path)
	if name == "" {
		return
	}
	w.scheduleReload(name)
}

// modForPath finds the loaded mod whose directory contains the path.
func (w *Watcher) modForPath(path string) string {
	for _, mod := range w.manager.List() {
		dir := mod.Manifest().Path()
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return mod.Name()
		}
	}
	return ""
}

// scheduleReload arms (or re-arms) the mod's debounce timer.
func (w *Watcher) scheduleReload(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[name]; ok {
		t.Reset(debounceWindow)
		return
	}
	w.pending[name] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.pending, name)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		w.logger.Info("reloading mod after source change", "mod", name)
		if err := w.manager.Reload(context.Background(), name); err != nil {
			w.logger.Error("hot reload failed", "mod", name, "error", err)
		}
	})
}
