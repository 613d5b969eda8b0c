package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// MathModule implements the engine.math helpers, gated on Math. The Lua
// math stdlib stays separately available; these are the game-flavored
// extensions.
type MathModule struct {
	ctx *Context
}

// NewMathModule creates the math module.
func NewMathModule(ctx *Context) *MathModule {
	return &MathModule{ctx: ctx}
}

// Name returns the module name.
func (m *MathModule) Name() string { return "math" }

// Register installs the module into the engine namespace.
func (m *MathModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "lerp", L.NewFunction(gated(caps, "math.lerp", security.CapabilityMath, m.lerp)))
	L.SetField(mod, "clamp", L.NewFunction(gated(caps, "math.clamp", security.CapabilityMath, m.clamp)))

	L.SetField(root, m.Name(), mod)
	return nil
}

// lerp(a, b, t) -> a + (b-a)*t
func (m *MathModule) lerp(L *lua.LState) int {
	a := float64(L.CheckNumber(1))
	b := float64(L.CheckNumber(2))
	t := float64(L.CheckNumber(3))
	L.Push(lua.LNumber(a + (b-a)*t))
	return 1
}

// clamp(x, min, max) -> x bounded to [min, max]
func (m *MathModule) clamp(L *lua.LState) int {
	x := float64(L.CheckNumber(1))
	lo := float64(L.CheckNumber(2))
	hi := float64(L.CheckNumber(3))

	if x < lo {
		x = lo
	}
	if x > hi {
		x = hi
	}
	L.Push(lua.LNumber(x))
	return 1
}
