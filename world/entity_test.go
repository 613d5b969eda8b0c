package world

import (
	"testing"

	"github.com/modforge/scripthost/hostapi"
)

func TestEntityStoreCreate(t *testing.T) {
	s := NewEntityStore()

	a := s.Create("player")
	b := s.Create("enemy")
	if a == b {
		t.Fatal("two entities share a handle")
	}
	if a == 0 || b == 0 {
		t.Error("0 must never be a valid handle")
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}

	tf, ok := s.Transform(a)
	if !ok {
		t.Fatal("Transform() missing for new entity")
	}
	if tf.ScaleX != 1 || tf.ScaleY != 1 {
		t.Errorf("new entity scale = (%v, %v), want identity", tf.ScaleX, tf.ScaleY)
	}

	name, ok := s.Name(a)
	if !ok || name != "player" {
		t.Errorf("Name() = %q, %v", name, ok)
	}
}

func TestEntityStoreSetTransform(t *testing.T) {
	s := NewEntityStore()
	id := s.Create("x")

	if !s.SetTransform(id, hostapi.Transform{X: 1, Y: 2, Rotation: 3}) {
		t.Fatal("SetTransform() = false for live entity")
	}
	tf, _ := s.Transform(id)
	if tf.X != 1 || tf.Y != 2 || tf.Rotation != 3 {
		t.Errorf("Transform() = %+v", tf)
	}

	if s.SetTransform(999, hostapi.Transform{}) {
		t.Error("SetTransform() = true for unknown handle")
	}
}

func TestEntityStoreRemove(t *testing.T) {
	s := NewEntityStore()
	a := s.Create("a")
	b := s.Create("b")

	if !s.Remove(a) {
		t.Fatal("Remove() = false for live entity")
	}
	if s.Remove(a) {
		t.Error("Remove() = true for removed entity")
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
	ids := s.IDs()
	if len(ids) != 1 || ids[0] != b {
		t.Errorf("IDs() = %v, want [%d]", ids, b)
	}

	// Handles are never reused.
	c := s.Create("c")
	if c == a {
		t.Error("removed handle was reused")
	}
}
