package hostapi

import (
	"context"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// LogModule implements the engine.log API, routing script output through
// the host logger. Gated on Logging.
type LogModule struct {
	ctx *Context
}

// NewLogModule creates the log module.
func NewLogModule(ctx *Context) *LogModule {
	return &LogModule{ctx: ctx}
}

// Name returns the module name.
func (m *LogModule) Name() string { return "log" }

// Register installs the module into the engine namespace.
func (m *LogModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(gated(caps, "log.debug", security.CapabilityLogging, m.level(slog.LevelDebug))))
	L.SetField(mod, "info", L.NewFunction(gated(caps, "log.info", security.CapabilityLogging, m.level(slog.LevelInfo))))
	L.SetField(mod, "warn", L.NewFunction(gated(caps, "log.warn", security.CapabilityLogging, m.level(slog.LevelWarn))))
	L.SetField(mod, "error", L.NewFunction(gated(caps, "log.error", security.CapabilityLogging, m.level(slog.LevelError))))

	L.SetField(root, m.Name(), mod)
	return nil
}

func (m *LogModule) level(lvl slog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		m.ctx.Log().Log(context.Background(), lvl, msg, "source", "script")
		return 0
	}
}
