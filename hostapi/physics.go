package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// PhysicsModule implements the engine.physics API, gated on PhysicsRaycast.
type PhysicsModule struct {
	ctx *Context
}

// NewPhysicsModule creates the physics module.
func NewPhysicsModule(ctx *Context) *PhysicsModule {
	return &PhysicsModule{ctx: ctx}
}

// Name returns the module name.
func (m *PhysicsModule) Name() string { return "physics" }

// Register installs the module into the engine namespace.
func (m *PhysicsModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "raycast", L.NewFunction(gated(caps, "physics.raycast", security.CapabilityPhysicsRaycast, m.raycast)))
	L.SetField(mod, "check_collision", L.NewFunction(gated(caps, "physics.check_collision", security.CapabilityPhysicsRaycast, m.checkCollision)))

	L.SetField(root, m.Name(), mod)
	return nil
}

func (m *PhysicsModule) world(L *lua.LState) PhysicsWorld {
	if m.ctx.Physics == nil {
		L.RaiseError("physics world is not available")
	}
	return m.ctx.Physics
}

// raycast(from_x, from_y, to_x, to_y) -> {entity, x, y, distance} | nil
func (m *PhysicsModule) raycast(L *lua.LState) int {
	fromX := float64(L.CheckNumber(1))
	fromY := float64(L.CheckNumber(2))
	toX := float64(L.CheckNumber(3))
	toY := float64(L.CheckNumber(4))

	hit, ok := m.world(L).Raycast(fromX, fromY, toX, toY)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}

	tbl := L.NewTable()
	L.SetField(tbl, "entity", lua.LNumber(hit.EntityID))
	L.SetField(tbl, "x", lua.LNumber(hit.X))
	L.SetField(tbl, "y", lua.LNumber(hit.Y))
	L.SetField(tbl, "distance", lua.LNumber(hit.Distance))
	L.Push(tbl)
	return 1
}

// check_collision(a, b) -> bool
func (m *PhysicsModule) checkCollision(L *lua.LState) int {
	a := uint64(L.CheckNumber(1))
	b := uint64(L.CheckNumber(2))
	L.Push(lua.LBool(m.world(L).CheckCollision(a, b)))
	return 1
}
