package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// EntityModule implements the engine.entity API.
//
// Getters require EntityRead; anything that creates or mutates requires
// EntityWrite.
type EntityModule struct {
	ctx *Context
}

// NewEntityModule creates the entity module.
func NewEntityModule(ctx *Context) *EntityModule {
	return &EntityModule{ctx: ctx}
}

// Name returns the module name.
func (m *EntityModule) Name() string { return "entity" }

// Register installs the module into the engine namespace.
func (m *EntityModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "create", L.NewFunction(gated(caps, "entity.create", security.CapabilityEntityWrite, m.create)))
	L.SetField(mod, "get_position", L.NewFunction(gated(caps, "entity.get_position", security.CapabilityEntityRead, m.getPosition)))
	L.SetField(mod, "set_position", L.NewFunction(gated(caps, "entity.set_position", security.CapabilityEntityWrite, m.setPosition)))
	L.SetField(mod, "move", L.NewFunction(gated(caps, "entity.move", security.CapabilityEntityWrite, m.move)))
	L.SetField(mod, "get_rotation", L.NewFunction(gated(caps, "entity.get_rotation", security.CapabilityEntityRead, m.getRotation)))
	L.SetField(mod, "set_rotation", L.NewFunction(gated(caps, "entity.set_rotation", security.CapabilityEntityWrite, m.setRotation)))

	L.SetField(root, m.Name(), mod)
	return nil
}

func (m *EntityModule) store(L *lua.LState) EntityStore {
	if m.ctx.Entities == nil {
		L.RaiseError("entity store is not available")
	}
	return m.ctx.Entities
}

// create(name?) -> handle
func (m *EntityModule) create(L *lua.LState) int {
	name := L.OptString(1, "Entity")
	id := m.store(L).Create(name)
	L.Push(lua.LNumber(id))
	return 1
}

// get_position(handle) -> {x, y}
func (m *EntityModule) getPosition(L *lua.LState) int {
	id := uint64(L.CheckNumber(1))
	tf, ok := m.store(L).Transform(id)
	if !ok {
		L.RaiseError("unknown entity %d", id)
		return 0
	}

	pos := L.NewTable()
	L.SetField(pos, "x", lua.LNumber(tf.X))
	L.SetField(pos, "y", lua.LNumber(tf.Y))
	L.Push(pos)
	return 1
}

// set_position(handle, {x, y}) -> nil
func (m *EntityModule) setPosition(L *lua.LState) int {
	id := uint64(L.CheckNumber(1))
	pos := L.CheckTable(2)

	store := m.store(L)
	tf, ok := store.Transform(id)
	if !ok {
		L.RaiseError("unknown entity %d", id)
		return 0
	}

	tf.X = float64(lua.LVAsNumber(pos.RawGetString("x")))
	tf.Y = float64(lua.LVAsNumber(pos.RawGetString("y")))
	store.SetTransform(id, tf)
	return 0
}

// move(handle, dx, dy) -> nil
func (m *EntityModule) move(L *lua.LState) int {
	id := uint64(L.CheckNumber(1))
	dx := float64(L.CheckNumber(2))
	dy := float64(L.CheckNumber(3))

	store := m.store(L)
	tf, ok := store.Transform(id)
	if !ok {
		L.RaiseError("unknown entity %d", id)
		return 0
	}

	tf.X += dx
	tf.Y += dy
	store.SetTransform(id, tf)
	return 0
}

// get_rotation(handle) -> radians
func (m *EntityModule) getRotation(L *lua.LState) int {
	id := uint64(L.CheckNumber(1))
	tf, ok := m.store(L).Transform(id)
	if !ok {
		L.RaiseError("unknown entity %d", id)
		return 0
	}

	L.Push(lua.LNumber(tf.Rotation))
	return 1
}

// set_rotation(handle, radians) -> nil
func (m *EntityModule) setRotation(L *lua.LState) int {
	id := uint64(L.CheckNumber(1))
	rot := float64(L.CheckNumber(2))

	store := m.store(L)
	tf, ok := store.Transform(id)
	if !ok {
		L.RaiseError("unknown entity %d", id)
		return 0
	}

	tf.Rotation = rot
	store.SetTransform(id, tf)
	return 0
}
