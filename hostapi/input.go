package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// InputModule implements the engine.input API. All functions read the
// frame's input snapshot and require the Input capability.
type InputModule struct {
	ctx *Context
}

// NewInputModule creates the input module.
func NewInputModule(ctx *Context) *InputModule {
	return &InputModule{ctx: ctx}
}

// Name returns the module name.
func (m *InputModule) Name() string { return "input" }

// Register installs the module into the engine namespace.
func (m *InputModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "is_key_down", L.NewFunction(gated(caps, "input.is_key_down", security.CapabilityInput, m.isKeyDown)))
	L.SetField(mod, "is_key_pressed", L.NewFunction(gated(caps, "input.is_key_pressed", security.CapabilityInput, m.isKeyPressed)))
	L.SetField(mod, "is_mouse_down", L.NewFunction(gated(caps, "input.is_mouse_down", security.CapabilityInput, m.isMouseDown)))
	L.SetField(mod, "get_mouse_position", L.NewFunction(gated(caps, "input.get_mouse_position", security.CapabilityInput, m.getMousePosition)))
	L.SetField(mod, "get_axis", L.NewFunction(gated(caps, "input.get_axis", security.CapabilityInput, m.getAxis)))

	L.SetField(root, m.Name(), mod)
	return nil
}

func (m *InputModule) input(L *lua.LState) InputState {
	if m.ctx.Input == nil {
		L.RaiseError("input state is not available")
	}
	return m.ctx.Input
}

func (m *InputModule) isKeyDown(L *lua.LState) int {
	key := L.CheckString(1)
	L.Push(lua.LBool(m.input(L).IsKeyDown(key)))
	return 1
}

func (m *InputModule) isKeyPressed(L *lua.LState) int {
	key := L.CheckString(1)
	L.Push(lua.LBool(m.input(L).IsKeyPressed(key)))
	return 1
}

func (m *InputModule) isMouseDown(L *lua.LState) int {
	button := L.CheckInt(1)
	L.Push(lua.LBool(m.input(L).IsMouseDown(button)))
	return 1
}

func (m *InputModule) getMousePosition(L *lua.LState) int {
	x, y := m.input(L).MousePosition()
	pos := L.NewTable()
	L.SetField(pos, "x", lua.LNumber(x))
	L.SetField(pos, "y", lua.LNumber(y))
	L.Push(pos)
	return 1
}

func (m *InputModule) getAxis(L *lua.LState) int {
	axis := L.CheckString(1)
	L.Push(lua.LNumber(m.input(L).Axis(axis)))
	return 1
}
