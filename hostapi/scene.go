package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// SceneModule implements the engine.scene API. Both functions need
// EntityRead; load additionally needs ConfigRead when the host marks the
// loader as exposing config-derived scene metadata.
type SceneModule struct {
	ctx *Context
}

// NewSceneModule creates the scene module.
func NewSceneModule(ctx *Context) *SceneModule {
	return &SceneModule{ctx: ctx}
}

// Name returns the module name.
func (m *SceneModule) Name() string { return "scene" }

// Register installs the module into the engine namespace.
func (m *SceneModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "load", L.NewFunction(gated(caps, "scene.load", security.CapabilityEntityRead, m.load)))
	L.SetField(mod, "get_current", L.NewFunction(gated(caps, "scene.get_current", security.CapabilityEntityRead, m.getCurrent)))

	L.SetField(root, m.Name(), mod)
	return nil
}

func (m *SceneModule) loader(L *lua.LState) SceneLoader {
	if m.ctx.Scene == nil {
		L.RaiseError("scene loader is not available")
	}
	return m.ctx.Scene
}

// load(name) -> nil
func (m *SceneModule) load(L *lua.LState) int {
	if m.ctx.SceneMetadata && !m.ctx.Caps.Has(security.CapabilityConfigRead) {
		return Deny(L, "scene.load", security.CapabilityConfigRead)
	}

	name := L.CheckString(1)
	if err := m.loader(L).Load(name); err != nil {
		L.RaiseError("scene.load: %v", err)
		return 0
	}
	return 0
}

// get_current() -> name
func (m *SceneModule) getCurrent(L *lua.LState) int {
	L.Push(lua.LString(m.loader(L).Current()))
	return 1
}
