package world

import (
	"fmt"
	"sync"
)

// SceneLoader tracks the active scene against a fixed set of known scenes.
// It implements hostapi.SceneLoader.
type SceneLoader struct {
	mu      sync.RWMutex
	known   map[string]bool
	current string
}

// NewSceneLoader creates a loader that accepts the given scene names.
func NewSceneLoader(scenes ...string) *SceneLoader {
	known := make(map[string]bool, len(scenes))
	for _, s := range scenes {
		known[s] = true
	}
	return &SceneLoader{known: known}
}

// Register adds a scene name.
func (l *SceneLoader) Register(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.known[name] = true
}

// Load switches to the named scene.
func (l *SceneLoader) Load(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.known[name] {
		return fmt.Errorf("unknown scene %q", name)
	}
	l.current = name
	return nil
}

// Current returns the active scene name, empty before the first Load.
func (l *SceneLoader) Current() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}
