package script

import (
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/hostapi"
	"github.com/modforge/scripthost/security"
)

// sandbox applies the hardening pass to a fresh Lua state: only safe
// standard libraries stay reachable, every escape hatch into the host
// (loading code from disk, metatable surgery, raw table access) is removed,
// and print is replaced with a capability-gated version that goes through
// the host logger.
type sandbox struct {
	L      *lua.LState
	caps   *security.CapabilitySet
	logger *slog.Logger
}

func newSandbox(L *lua.LState, caps *security.CapabilitySet, logger *slog.Logger) *sandbox {
	return &sandbox{L: L, caps: caps, logger: logger}
}

// openSafeLibraries opens only the Lua standard libraries that cannot touch
// host state.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Intentionally not opened: io, os, debug, package, coroutine.
	// Scripts reach the host exclusively through the gated engine API.
}

// install applies all hardening steps. Must run before any host module is
// registered so the modules land in an already-clean environment.
func (s *sandbox) install() {
	s.removeDangerousGlobals()
	s.installSafePrint()
}

// removeDangerousGlobals strips every base-library function that could load
// code, bypass the capability gates, or subvert the host-installed tables.
func (s *sandbox) removeDangerousGlobals() {
	dangerous := []string{
		"dofile",     // load and execute file
		"loadfile",   // load file as function
		"load",       // load string as function
		"loadstring", // load string as function (deprecated but may exist)
		"rawequal",
		"rawget",
		"rawset",
		"rawlen",
		"collectgarbage",
		"getfenv",
		"setfenv",
		"getmetatable",
		"setmetatable",
		"newproxy",
		"require",
		"module",
	}

	for _, name := range dangerous {
		s.L.SetGlobal(name, lua.LNil)
	}

	// These libraries must not exist at all, whatever got opened.
	for _, name := range []string{"io", "os", "debug", "package"} {
		s.L.SetGlobal(name, lua.LNil)
	}
}

// installSafePrint replaces print with a version that writes to the host
// logger. Gated on the Logging capability; the denial is catchable from Lua
// like any bridge denial.
func (s *sandbox) installSafePrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		if !s.caps.Has(security.CapabilityLogging) {
			return hostapi.Deny(L, "print", security.CapabilityLogging)
		}

		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.Get(i).String())
		}
		s.logger.Info(strings.Join(parts, "\t"), "source", "script")
		return 0
	}))
}
