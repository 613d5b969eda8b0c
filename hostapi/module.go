package hostapi

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/security"
)

// DenialPrefix is the stable marker in every capability-denial error raised
// into Lua. The engine uses it to classify an uncaught denial.
const DenialPrefix = "capability denied: "

// Deny raises the standard capability-denial error into the Lua state. The
// error is catchable with pcall. Always returns 0 for use as a tail call in
// LGFunctions (RaiseError does not return).
func Deny(L *lua.LState, api string, cap security.Capability) int {
	L.RaiseError("%s%s (requires %s)", DenialPrefix, api, cap)
	return 0
}

// gated wraps fn with a fail-closed capability check. The capability is a
// required argument, so a module cannot register a host-touching function
// without declaring what gates it.
func gated(caps *security.CapabilitySet, api string, cap security.Capability, fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		if !caps.Has(cap) {
			return Deny(L, api, cap)
		}
		return fn(L)
	}
}

// Module is one API area registered under the engine namespace.
type Module interface {
	// Name returns the module name (e.g. "entity", "audio").
	Name() string

	// Register installs the module's function table into root.
	Register(L *lua.LState, root *lua.LTable) error
}

// Registry holds the modules installed into one engine.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}
	r.modules[mod.Name()] = mod
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InstallAll registers every module's table into root. All modules are
// always installed; capability enforcement happens per call, so a script
// probing a module it cannot use gets a catchable denial rather than a nil
// table.
func (r *Registry) InstallAll(L *lua.LState, root *lua.LTable) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, mod := range r.modules {
		if err := mod.Register(L, root); err != nil {
			return fmt.Errorf("registering module %q: %w", name, err)
		}
	}
	return nil
}

// DefaultModules returns the full API surface over the given context.
func DefaultModules(ctx *Context) []Module {
	return []Module{
		NewLogModule(ctx),
		NewTimeModule(ctx),
		NewMathModule(ctx),
		NewInputModule(ctx),
		NewEntityModule(ctx),
		NewAudioModule(ctx),
		NewPhysicsModule(ctx),
		NewSceneModule(ctx),
		NewConfigModule(ctx),
		NewFSModule(ctx),
		NewDebugModule(ctx),
	}
}
