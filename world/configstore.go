package world

import (
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ConfigStore is a JSON-backed game configuration document addressed by
// dotted paths ("gameplay.difficulty"). It implements hostapi.ConfigStore.
type ConfigStore struct {
	mu  sync.RWMutex
	doc string
}

// NewConfigStore creates a store seeded with the given JSON document. An
// empty seed starts from an empty object.
func NewConfigStore(seed string) (*ConfigStore, error) {
	if seed == "" {
		seed = "{}"
	}
	if !gjson.Valid(seed) {
		return nil, fmt.Errorf("config seed is not valid JSON")
	}
	return &ConfigStore{doc: seed}, nil
}

// Get returns the value at the dotted path. JSON numbers come back as
// float64, objects as map[string]any, arrays as []any.
func (s *ConfigStore) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := gjson.Get(s.doc, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// Set writes the value at the dotted path, creating intermediate objects as
// needed.
func (s *ConfigStore) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.Set(s.doc, path, value)
	if err != nil {
		return fmt.Errorf("setting config path %q: %w", path, err)
	}
	s.doc = doc
	return nil
}

// Delete removes the value at the dotted path.
func (s *ConfigStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := sjson.Delete(s.doc, path)
	if err != nil {
		return fmt.Errorf("deleting config path %q: %w", path, err)
	}
	s.doc = doc
	return nil
}

// JSON returns the current document.
func (s *ConfigStore) JSON() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}
