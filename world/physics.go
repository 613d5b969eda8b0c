package world

import (
	"math"
	"sync"

	"github.com/modforge/scripthost/hostapi"
)

// Box is an axis-aligned bounding box.
type Box struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Contains reports whether the point is inside the box.
func (b Box) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Overlaps reports whether two boxes intersect.
func (b Box) Overlaps(o Box) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// PhysicsWorld is an AABB collision world over the entity store. It
// implements hostapi.PhysicsWorld.
type PhysicsWorld struct {
	mu       sync.RWMutex
	entities *EntityStore
	bodies   map[uint64]Box
}

// NewPhysicsWorld creates a world over the given entity store.
func NewPhysicsWorld(entities *EntityStore) *PhysicsWorld {
	return &PhysicsWorld{
		entities: entities,
		bodies:   make(map[uint64]Box),
	}
}

// SetBody attaches a collision box to the entity. It reports false when the
// handle is unknown to the entity store.
func (w *PhysicsWorld) SetBody(id uint64, b Box) bool {
	if _, ok := w.entities.Transform(id); !ok {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bodies[id] = b
	return true
}

// RemoveBody detaches the entity's collision box.
func (w *PhysicsWorld) RemoveBody(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, id)
}

// Prune drops bodies whose entity no longer exists in the store.
func (w *PhysicsWorld) Prune() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id := range w.bodies {
		if _, ok := w.entities.Transform(id); !ok {
			delete(w.bodies, id)
		}
	}
}

// Raycast walks the segment from (fromX,fromY) to (toX,toY) and returns the
// nearest body hit.
func (w *PhysicsWorld) Raycast(fromX, fromY, toX, toY float64) (hostapi.HitInfo, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dx := toX - fromX
	dy := toY - fromY
	length := math.Hypot(dx, dy)
	if length == 0 {
		return hostapi.HitInfo{}, false
	}

	best := hostapi.HitInfo{Distance: math.Inf(1)}
	found := false
	for id, box := range w.bodies {
		t, ok := segmentBoxEntry(fromX, fromY, dx, dy, box)
		if !ok {
			continue
		}
		dist := t * length
		if dist < best.Distance {
			best = hostapi.HitInfo{
				EntityID: id,
				X:        fromX + dx*t,
				Y:        fromY + dy*t,
				Distance: dist,
			}
			found = true
		}
	}
	if !found {
		return hostapi.HitInfo{}, false
	}
	return best, true
}

// segmentBoxEntry returns the parametric entry point t in [0,1] where the
// segment enters the box (slab method).
func segmentBoxEntry(ox, oy, dx, dy float64, b Box) (float64, bool) {
	tMin, tMax := 0.0, 1.0

	for _, axis := range [2]struct {
		o, d, lo, hi float64
	}{
		{ox, dx, b.MinX, b.MaxX},
		{oy, dy, b.MinY, b.MaxY},
	} {
		if axis.d == 0 {
			if axis.o < axis.lo || axis.o > axis.hi {
				return 0, false
			}
			continue
		}
		t1 := (axis.lo - axis.o) / axis.d
		t2 := (axis.hi - axis.o) / axis.d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// CheckCollision reports whether the two entities' boxes overlap. Entities
// without a body never collide.
func (w *PhysicsWorld) CheckCollision(a, b uint64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ba, ok := w.bodies[a]
	if !ok {
		return false
	}
	bb, ok := w.bodies[b]
	if !ok {
		return false
	}
	return ba.Overlaps(bb)
}
