package hostapi

import (
	"log/slog"
	"time"

	"github.com/modforge/scripthost/security"
)

// Transform is an entity's 2D placement.
type Transform struct {
	X        float64
	Y        float64
	Rotation float64
	ScaleX   float64
	ScaleY   float64
}

// HitInfo describes a raycast hit.
type HitInfo struct {
	EntityID uint64
	X        float64
	Y        float64
	Distance float64
}

// EntityStore is the consumed entity-storage interface.
type EntityStore interface {
	// Create makes a new named entity and returns its handle.
	Create(name string) uint64

	// Transform returns the entity's transform, or false for an unknown
	// handle.
	Transform(id uint64) (Transform, bool)

	// SetTransform replaces the entity's transform. Returns false for an
	// unknown handle, in which case nothing was mutated.
	SetTransform(id uint64, t Transform) bool

	// Count returns the number of live entities.
	Count() int
}

// AudioMixer is the consumed audio interface.
type AudioMixer interface {
	Play(clip string)
	Stop(clip string)
	SetVolume(clip string, volume float64)
}

// PhysicsWorld is the consumed physics-query interface.
type PhysicsWorld interface {
	// Raycast casts a segment and reports the first hit, if any.
	Raycast(fromX, fromY, toX, toY float64) (HitInfo, bool)

	// CheckCollision reports whether two entities overlap.
	CheckCollision(a, b uint64) bool
}

// InputState is a read-only snapshot of input for the current frame.
type InputState interface {
	IsKeyDown(key string) bool
	IsKeyPressed(key string) bool
	IsMouseDown(button int) bool
	MousePosition() (x, y float64)
	Axis(name string) float64
}

// SceneLoader is the consumed scene-management interface.
type SceneLoader interface {
	Load(name string) error
	Current() string
}

// ConfigStore is the consumed game-configuration interface. Paths are
// dotted (e.g. "gameplay.difficulty").
type ConfigStore interface {
	Get(path string) (any, bool)
	Set(path string, value any) error
}

// Context carries everything the API modules need: the capability set that
// gates every call and the collaborator interfaces the calls forward to.
// Nil collaborators are allowed; a call against one raises a Lua error
// after passing its capability check.
type Context struct {
	Caps *security.CapabilitySet

	Entities EntityStore
	Audio    AudioMixer
	Physics  PhysicsWorld
	Input    InputState
	Scene    SceneLoader
	Config   ConfigStore

	// SceneMetadata marks that the scene loader exposes config-derived
	// metadata, in which case scene.load additionally requires ConfigRead.
	SceneMetadata bool

	// Files confines fs module access; FileOps throttles it. Both may be
	// nil, which disables the fs module's operations.
	Files   *security.PathPolicy
	FileOps *security.RateLimiter

	// Clock supplies game time. Nil means time.Now.
	Clock func() time.Time

	// Logger receives script log output. Nil means slog.Default().
	Logger *slog.Logger
}

// Now returns the context's notion of current time.
func (c *Context) Now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Log returns the context logger.
func (c *Context) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
