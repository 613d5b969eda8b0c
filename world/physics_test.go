package world

import (
	"math"
	"testing"
)

func TestRaycastHit(t *testing.T) {
	s := NewEntityStore()
	w := NewPhysicsWorld(s)

	id := s.Create("wall")
	w.SetBody(id, Box{MinX: 5, MinY: -1, MaxX: 6, MaxY: 1})

	hit, ok := w.Raycast(0, 0, 10, 0)
	if !ok {
		t.Fatal("Raycast() missed a body on the segment")
	}
	if hit.EntityID != id {
		t.Errorf("EntityID = %d, want %d", hit.EntityID, id)
	}
	if math.Abs(hit.X-5) > 1e-9 || math.Abs(hit.Distance-5) > 1e-9 {
		t.Errorf("hit = %+v, want entry at x=5", hit)
	}
}

func TestRaycastNearestWins(t *testing.T) {
	s := NewEntityStore()
	w := NewPhysicsWorld(s)

	far := s.Create("far")
	near := s.Create("near")
	w.SetBody(far, Box{MinX: 8, MinY: -1, MaxX: 9, MaxY: 1})
	w.SetBody(near, Box{MinX: 3, MinY: -1, MaxX: 4, MaxY: 1})

	hit, ok := w.Raycast(0, 0, 10, 0)
	if !ok || hit.EntityID != near {
		t.Errorf("Raycast() = %+v, %v, want nearest entity %d", hit, ok, near)
	}
}

func TestRaycastMiss(t *testing.T) {
	s := NewEntityStore()
	w := NewPhysicsWorld(s)

	id := s.Create("offside")
	w.SetBody(id, Box{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6})

	if _, ok := w.Raycast(0, 0, 10, 0); ok {
		t.Error("Raycast() hit a body off the segment")
	}
	if _, ok := w.Raycast(1, 1, 1, 1); ok {
		t.Error("zero-length Raycast() reported a hit")
	}
}

func TestCheckCollision(t *testing.T) {
	s := NewEntityStore()
	w := NewPhysicsWorld(s)

	a := s.Create("a")
	b := s.Create("b")
	c := s.Create("c")
	w.SetBody(a, Box{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2})
	w.SetBody(b, Box{MinX: 1, MinY: 1, MaxX: 3, MaxY: 3})
	w.SetBody(c, Box{MinX: 10, MinY: 10, MaxX: 11, MaxY: 11})

	if !w.CheckCollision(a, b) {
		t.Error("overlapping boxes did not collide")
	}
	if w.CheckCollision(a, c) {
		t.Error("distant boxes collided")
	}

	// No body means no collision.
	d := s.Create("bodiless")
	if w.CheckCollision(a, d) {
		t.Error("entity without a body collided")
	}

	w.RemoveBody(b)
	if w.CheckCollision(a, b) {
		t.Error("removed body still collides")
	}
}

func TestSetBodyUnknownEntity(t *testing.T) {
	s := NewEntityStore()
	w := NewPhysicsWorld(s)

	if w.SetBody(42, Box{MaxX: 1, MaxY: 1}) {
		t.Error("SetBody() = true for a handle the store never issued")
	}
	if _, ok := w.Raycast(-1, 0.5, 2, 0.5); ok {
		t.Error("Raycast() hit a body that should not have been attached")
	}

	id := s.Create("real")
	if !w.SetBody(id, Box{MaxX: 1, MaxY: 1}) {
		t.Error("SetBody() = false for a live entity")
	}
}

func TestPruneDropsRemovedEntities(t *testing.T) {
	s := NewEntityStore()
	w := NewPhysicsWorld(s)

	gone := s.Create("gone")
	kept := s.Create("kept")
	w.SetBody(gone, Box{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2})
	w.SetBody(kept, Box{MinX: 1, MinY: 1, MaxX: 3, MaxY: 3})

	s.Remove(gone)
	w.Prune()

	if w.CheckCollision(gone, kept) {
		t.Error("pruned body still collides")
	}
	if _, ok := w.Raycast(2, 2, 2.5, 2.5); !ok {
		t.Error("Prune() dropped a body whose entity is still alive")
	}
}
