package world

import (
	"sync"

	"github.com/modforge/scripthost/hostapi"
)

// EntityStore is an in-memory entity table with sequential handles. It
// implements hostapi.EntityStore and is safe for concurrent use.
type EntityStore struct {
	mu      sync.RWMutex
	nextID  uint64
	byID    map[uint64]*entity
	ordered []uint64
}

type entity struct {
	name      string
	transform hostapi.Transform
}

// NewEntityStore creates an empty store. Handles start at 1; 0 is never a
// valid handle.
func NewEntityStore() *EntityStore {
	return &EntityStore{byID: make(map[uint64]*entity)}
}

// Create makes a new named entity with an identity transform.
func (s *EntityStore) Create(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.byID[id] = &entity{
		name:      name,
		transform: hostapi.Transform{ScaleX: 1, ScaleY: 1},
	}
	s.ordered = append(s.ordered, id)
	return id
}

// Transform returns the entity's transform.
func (s *EntityStore) Transform(id uint64) (hostapi.Transform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return hostapi.Transform{}, false
	}
	return e.transform, true
}

// SetTransform replaces the entity's transform.
func (s *EntityStore) SetTransform(id uint64, t hostapi.Transform) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return false
	}
	e.transform = t
	return true
}

// Name returns the entity's name.
func (s *EntityStore) Name(id uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return "", false
	}
	return e.name, true
}

// Remove deletes the entity.
func (s *EntityStore) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, eid := range s.ordered {
		if eid == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return true
}

// Count returns the number of live entities.
func (s *EntityStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// IDs returns the live handles in creation order.
func (s *EntityStore) IDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]uint64, len(s.ordered))
	copy(out, s.ordered)
	return out
}
