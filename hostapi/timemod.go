package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// TimeModule implements the engine.time API, gated on Time.
type TimeModule struct {
	ctx *Context
}

// NewTimeModule creates the time module.
func NewTimeModule(ctx *Context) *TimeModule {
	return &TimeModule{ctx: ctx}
}

// Name returns the module name.
func (m *TimeModule) Name() string { return "time" }

// Register installs the module into the engine namespace.
func (m *TimeModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "now", L.NewFunction(gated(caps, "time.now", security.CapabilityTime, m.now)))

	L.SetField(root, m.Name(), mod)
	return nil
}

// now() -> seconds since the Unix epoch, fractional
func (m *TimeModule) now(L *lua.LState) int {
	t := m.ctx.Now()
	L.Push(lua.LNumber(float64(t.UnixNano()) / 1e9))
	return 1
}
