package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/modforge/scripthost/hostapi"
	"github.com/modforge/scripthost/security"
)

// EngineVersion is surfaced to scripts as engine.version.
const EngineVersion = "1.0.0"

// ErrEngineClosed is returned from operations on a closed engine.
var ErrEngineClosed = errors.New("script engine is closed")

// ErrEngineFaulted is returned from operations on a faulted engine before
// Recover is called.
var ErrEngineFaulted = errors.New("script engine is faulted")

// EngineState describes whether an engine can accept work.
type EngineState int32

const (
	// StateReady means the engine can run scripts.
	StateReady EngineState = iota

	// StateRunning means a script is executing.
	StateRunning

	// StateFaulted means the last run breached the memory ceiling and the
	// interpreter heap is suspect. Recover clears the fault.
	StateFaulted
)

// String returns a string representation of the state.
func (s EngineState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Usage is a snapshot of the resources consumed by the last run.
type Usage struct {
	// Steps is the number of VM instructions executed.
	Steps uint64

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration

	// HeapUsed is the heap growth observed by the last memory probe, in
	// bytes. Zero when the run finished before the first probe.
	HeapUsed uint64
}

// Engine is one isolated Lua interpreter with its own capability set, host
// API surface and resource ceilings. Engines share nothing: a global set in
// one engine is invisible to every other engine. All methods are safe for
// concurrent use; script execution itself is serialized per engine.
type Engine struct {
	mu sync.Mutex

	id       uuid.UUID
	cfg      SandboxConfig
	L        *lua.LState
	caps     *security.CapabilitySet
	monitor  *security.Monitor
	registry *hostapi.Registry
	bridge   *Bridge
	logger   *slog.Logger

	state     atomic.Int32
	closed    bool
	lastUsage Usage
}

// Option customizes engine construction.
type Option func(*Engine)

// WithLogger sets the logger the engine and its sandbox write to.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithModules registers additional host API modules alongside the default
// surface.
func WithModules(mods ...hostapi.Module) Option {
	return func(e *Engine) {
		for _, m := range mods {
			// Duplicate names surface later, during InstallAll.
			_ = e.registry.Register(m)
		}
	}
}

// New creates an engine for the given configuration and host context. The
// engine owns its capability set, seeded from cfg.TrustLevel; host.Caps is
// pointed at it so every API module gates on the same set. host may be nil
// for a pure-compute sandbox.
func New(cfg SandboxConfig, host *hostapi.Context, opts ...Option) (_ *Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = initError(fmt.Errorf("interpreter construction panicked: %v", r))
		}
	}()

	cfg = cfg.withDefaults()
	if host == nil {
		host = &hostapi.Context{}
	}

	e := &Engine{
		id:       uuid.New(),
		cfg:      cfg,
		caps:     security.NewCapabilitySet(cfg.TrustLevel),
		monitor:  security.NewMonitor(cfg.InstructionLimit, cfg.MemoryLimit),
		registry: hostapi.NewRegistry(),
		logger:   slog.Default(),
	}
	host.Caps = e.caps
	if host.Logger != nil {
		e.logger = host.Logger
	}
	for _, mod := range hostapi.DefaultModules(host) {
		if rerr := e.registry.Register(mod); rerr != nil {
			return nil, initError(rerr)
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	if host.Logger == nil {
		host.Logger = e.logger
	}

	e.L = lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       cfg.MaxStackDepth,
		IncludeGoStackTrace: false,
	})
	e.bridge = NewBridge(e.L)

	openSafeLibraries(e.L)
	newSandbox(e.L, e.caps, e.logger).install()

	root := e.L.NewTable()
	e.L.SetField(root, "version", lua.LString(EngineVersion))
	if ierr := e.registry.InstallAll(e.L, root); ierr != nil {
		e.L.Close()
		return nil, initError(ierr)
	}
	e.L.SetGlobal("engine", root)

	e.state.Store(int32(StateReady))
	return e, nil
}

// ID returns the engine's unique identifier.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Caps returns the engine's capability set. Grants and revokes on it take
// effect on the next bridge call.
func (e *Engine) Caps() *security.CapabilitySet {
	return e.caps
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() SandboxConfig {
	return e.cfg
}

// State returns the engine's current state.
func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Usage returns the resource usage of the most recent run.
func (e *Engine) Usage() Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsage
}

// Recover clears a memory fault so the engine accepts work again. Holding
// work after a memory breach is a policy choice: the faulted state is a
// hint that the interpreter heap is suspect, not proof of corruption, and
// the host decides whether to Recover or rebuild. The interpreter keeps
// whatever the aborted run allocated, so hosts that want a clean heap
// should close and rebuild instead.
func (e *Engine) Recover() {
	e.state.CompareAndSwap(int32(StateFaulted), int32(StateReady))
}

// Close releases the interpreter. The engine is unusable afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.L.Close()
}

// RunScript compiles and executes source, discarding any returned values.
func (e *Engine) RunScript(source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, err := e.load(source)
	if err != nil {
		return err
	}
	_, rerr := e.run(fn, 0)
	return rerr
}

// EvalValue compiles and executes source and returns its first returned
// value converted to a Go value (nil when the script returns nothing).
func (e *Engine) EvalValue(source string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, err := e.load(source)
	if err != nil {
		return nil, err
	}
	return e.run(fn, 1)
}

// CallGlobal invokes a global function defined by a previously executed
// script, under the same resource ceilings as RunScript. It returns the
// function's first return value.
func (e *Engine) CallGlobal(name string, args ...any) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkRunnable(); err != nil {
		return nil, err
	}

	fn := e.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, runtimeError(fmt.Errorf("global %q is not a function", name))
	}

	lvArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lvArgs[i] = e.bridge.ToLuaValue(a)
	}
	return e.exec(fn.(*lua.LFunction), lvArgs, 1)
}

// Compile checks that source parses without executing anything. A failure
// is a KindCompile error.
func (e *Engine) Compile(source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.load(source)
	return err
}

// HasGlobal reports whether a script has defined the named global function.
func (e *Engine) HasGlobal(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	return e.L.GetGlobal(name).Type() == lua.LTFunction
}

// load compiles source without executing it.
func (e *Engine) load(source string) (*lua.LFunction, error) {
	if err := e.checkRunnable(); err != nil {
		return nil, err
	}

	fn, err := e.L.LoadString(source)
	if err != nil {
		return nil, compileError(err)
	}
	return fn, nil
}

func (e *Engine) checkRunnable() error {
	if e.closed {
		return runtimeError(ErrEngineClosed)
	}
	if e.State() == StateFaulted {
		return runtimeError(ErrEngineFaulted)
	}
	return nil
}

func (e *Engine) run(fn *lua.LFunction, nret int) (any, error) {
	return e.exec(fn, nil, nret)
}

// exec runs fn under the quota context and classifies any failure. The
// caller holds e.mu.
func (e *Engine) exec(fn *lua.LFunction, args []lua.LValue, nret int) (any, error) {
	var deadline time.Time
	if e.cfg.Timeout > 0 {
		deadline = time.Now().Add(e.cfg.Timeout)
	}
	e.monitor.Begin(deadline)

	quota := newQuotaContext(context.Background(), e.monitor)
	e.L.SetContext(quota)
	defer e.L.RemoveContext()

	e.state.Store(int32(StateRunning))
	start := time.Now()

	base := e.L.GetTop()
	e.L.Push(fn)
	for _, a := range args {
		e.L.Push(a)
	}
	perr := e.L.PCall(len(args), nret, nil)

	e.lastUsage = Usage{
		Steps:    e.monitor.Steps(),
		Elapsed:  time.Since(start),
		HeapUsed: e.monitor.HeapUsed(),
	}

	if perr != nil {
		// Drop anything the aborted run left on the stack.
		e.L.SetTop(base)
		serr := e.classify(perr)
		if serr.Kind == KindMemoryLimit {
			e.state.Store(int32(StateFaulted))
		} else {
			e.state.Store(int32(StateReady))
		}
		return nil, serr
	}

	var result any
	if nret > 0 {
		result = e.bridge.ToGoValue(e.L.Get(base + 1))
		e.L.SetTop(base)
	}
	e.state.Store(int32(StateReady))
	return result, nil
}

// classify maps a raw interpreter error onto the error taxonomy. Resource
// breaches are read from the monitor rather than parsed out of interpreter
// messages; capability denials carry the stable prefix raised by the bridge.
func (e *Engine) classify(err error) *Error {
	switch e.monitor.Breach() {
	case security.BreachInstructions:
		return &Error{
			Kind:     KindResourceLimit,
			Resource: security.BreachInstructions.String(),
			Err:      err,
		}
	case security.BreachDeadline:
		return &Error{
			Kind:  KindTimeout,
			Steps: e.monitor.Steps(),
			Err:   err,
		}
	case security.BreachMemory:
		return &Error{
			Kind:  KindMemoryLimit,
			Used:  e.monitor.HeapUsed(),
			Limit: e.monitor.MemoryLimit(),
			Err:   err,
		}
	}

	if api, cap, ok := parseDenial(err.Error()); ok {
		return &Error{
			Kind:       KindCapabilityDenied,
			API:        api,
			Capability: cap,
			Err:        err,
		}
	}
	return runtimeError(err)
}

// parseDenial extracts the API name and missing capability from an uncaught
// denial message, which the interpreter prefixes with position information.
func parseDenial(msg string) (string, security.Capability, bool) {
	i := strings.Index(msg, hostapi.DenialPrefix)
	if i < 0 {
		return "", 0, false
	}
	rest := msg[i+len(hostapi.DenialPrefix):]

	j := strings.Index(rest, " (requires ")
	if j < 0 {
		return "", 0, false
	}
	api := rest[:j]
	capName := strings.TrimSuffix(rest[j+len(" (requires "):], ")")
	cap, ok := security.ParseCapability(capName)
	if !ok {
		return "", 0, false
	}
	return api, cap, true
}

// Eval runs source in e and converts its first returned value to T. Script
// numbers arrive as int64 when integral and float64 otherwise; Eval bridges
// between numeric kinds, so Eval[float64] accepts an integral result.
func Eval[T any](e *Engine, source string) (T, error) {
	var zero T

	v, err := e.EvalValue(source)
	if err != nil {
		return zero, err
	}

	out, ok := convertResult[T](v)
	if !ok {
		return zero, runtimeError(fmt.Errorf("script returned %T, want %T", v, zero))
	}
	return out, nil
}

func convertResult[T any](v any) (T, bool) {
	var zero T

	if v == nil {
		// nil is only a valid result for nilable target types.
		switch reflect.TypeOf(&zero).Elem().Kind() {
		case reflect.Interface, reflect.Slice, reflect.Map, reflect.Pointer:
			return zero, true
		}
		return zero, false
	}

	if out, ok := v.(T); ok {
		return out, true
	}

	// Numeric bridging only; anything else must assert directly.
	want := reflect.TypeOf(&zero).Elem()
	got := reflect.ValueOf(v)
	if isNumericKind(want.Kind()) && isNumericKind(got.Kind()) {
		return got.Convert(want).Interface().(T), true
	}
	return zero, false
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
