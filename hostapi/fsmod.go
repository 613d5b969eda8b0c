package hostapi

import (
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// FSModule implements the engine.fs API: file access confined to the mod's
// data root. Everything is gated on FileSystem, resolved through the
// context's PathPolicy and throttled by its RateLimiter.
//
// Soft failures (missing file, I/O error) follow the Lua convention of
// returning nil plus a message; policy violations raise.
type FSModule struct {
	ctx *Context
}

// NewFSModule creates the fs module.
func NewFSModule(ctx *Context) *FSModule {
	return &FSModule{ctx: ctx}
}

// Name returns the module name.
func (m *FSModule) Name() string { return "fs" }

// Register installs the module into the engine namespace.
func (m *FSModule) Register(L *lua.LState, root *lua.LTable) error {
	caps := m.ctx.Caps
	mod := L.NewTable()

	L.SetField(mod, "read", L.NewFunction(gated(caps, "fs.read", security.CapabilityFileSystem, m.read)))
	L.SetField(mod, "write", L.NewFunction(gated(caps, "fs.write", security.CapabilityFileSystem, m.write)))
	L.SetField(mod, "list", L.NewFunction(gated(caps, "fs.list", security.CapabilityFileSystem, m.list)))

	L.SetField(root, m.Name(), mod)
	return nil
}

// resolve applies the path policy and rate limit shared by every fs call.
func (m *FSModule) resolve(L *lua.LState, rel string) string {
	if m.ctx.Files == nil {
		L.RaiseError("file access is not configured")
		return ""
	}
	if m.ctx.FileOps != nil && !m.ctx.FileOps.Allow() {
		L.RaiseError("file operation rate limit exceeded")
		return ""
	}

	abs, err := m.ctx.Files.Resolve(rel)
	if err != nil {
		L.RaiseError("fs: %v", err)
		return ""
	}
	return abs
}

// read(path) -> content | nil, err
func (m *FSModule) read(L *lua.LState) int {
	path := m.resolve(L, L.CheckString(1))

	data, err := os.ReadFile(path)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(data))
	return 1
}

// write(path, content) -> true | nil, err
func (m *FSModule) write(L *lua.LState) int {
	path := m.resolve(L, L.CheckString(1))
	content := L.CheckString(2)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// list(dir) -> {names} | nil, err
func (m *FSModule) list(L *lua.LState) int {
	path := m.resolve(L, L.OptString(1, "."))

	entries, err := os.ReadDir(path)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	tbl := L.NewTable()
	for i, entry := range entries {
		tbl.RawSetInt(i+1, lua.LString(entry.Name()))
	}
	L.Push(tbl)
	return 1
}
