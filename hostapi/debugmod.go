package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// DebugModule implements the engine.debug introspection API, gated on
// Debug. Every function is read-only: it reports on engine state, it never
// mutates.
type DebugModule struct {
	ctx *Context
}

// NewDebugModule creates the debug module.
func NewDebugModule(ctx *Context) *DebugModule {
	return &DebugModule{ctx: ctx}
}

// Name returns the module name.
func (m *DebugModule) Name() string { return "debug" }

// Register installs the module into the engine namespace.
func (m *DebugModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "entity_count", L.NewFunction(gated(caps, "debug.entity_count", security.CapabilityDebug, m.entityCount)))
	L.SetField(mod, "capabilities", L.NewFunction(gated(caps, "debug.capabilities", security.CapabilityDebug, m.capabilities)))
	L.SetField(mod, "trust_level", L.NewFunction(gated(caps, "debug.trust_level", security.CapabilityDebug, m.trustLevel)))

	L.SetField(root, m.Name(), mod)
	return nil
}

// entity_count() -> n
func (m *DebugModule) entityCount(L *lua.LState) int {
	if m.ctx.Entities == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.ctx.Entities.Count()))
	return 1
}

// capabilities() -> {names}
func (m *DebugModule) capabilities(L *lua.LState) int {
	tbl := L.NewTable()
	for i, c := range m.ctx.Caps.Capabilities() {
		tbl.RawSetInt(i+1, lua.LString(c.String()))
	}
	L.Push(tbl)
	return 1
}

// trust_level() -> name
func (m *DebugModule) trustLevel(L *lua.LState) int {
	L.Push(lua.LString(m.ctx.Caps.TrustLevel().String()))
	return 1
}
