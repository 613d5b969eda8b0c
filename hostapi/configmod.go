package hostapi

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// ConfigModule implements the engine.config API. Reads require ConfigRead,
// writes require ConfigWrite.
type ConfigModule struct {
	ctx *Context
}

// NewConfigModule creates the config module.
func NewConfigModule(ctx *Context) *ConfigModule {
	return &ConfigModule{ctx: ctx}
}

// Name returns the module name.
func (m *ConfigModule) Name() string { return "config" }

// Register installs the module into the engine namespace.
func (m *ConfigModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "get", L.NewFunction(gated(caps, "config.get", security.CapabilityConfigRead, m.get)))
	L.SetField(mod, "set", L.NewFunction(gated(caps, "config.set", security.CapabilityConfigWrite, m.set)))

	L.SetField(root, m.Name(), mod)
	return nil
}

func (m *ConfigModule) store(L *lua.LState) ConfigStore {
	if m.ctx.Config == nil {
		L.RaiseError("config store is not available")
	}
	return m.ctx.Config
}

// get(path) -> value | nil
func (m *ConfigModule) get(L *lua.LState) int {
	path := L.CheckString(1)
	value, ok := m.store(L).Get(path)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, value))
	return 1
}

// set(path, value) -> nil
func (m *ConfigModule) set(L *lua.LState) int {
	path := L.CheckString(1)
	value := fromLua(L.CheckAny(2))

	if err := m.store(L).Set(path, value); err != nil {
		L.RaiseError("config.set: %v", err)
		return 0
	}
	return 0
}
