package script

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modforge/scripthost/hostapi"
	"github.com/modforge/scripthost/security"
	"github.com/modforge/scripthost/world"
)

func newTestEngine(t *testing.T, cfg SandboxConfig, host *hostapi.Context) *Engine {
	t.Helper()
	e, err := New(cfg, host)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEvalArithmetic(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	got, err := Eval[float64](e, "return 1 + 1")
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != 2.0 {
		t.Errorf("Eval() = %v, want 2.0", got)
	}
}

func TestEvalTypes(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	if got, err := Eval[string](e, `return "hello " .. "world"`); err != nil || got != "hello world" {
		t.Errorf("Eval[string]() = %q, %v", got, err)
	}
	if got, err := Eval[bool](e, "return 1 < 2"); err != nil || !got {
		t.Errorf("Eval[bool]() = %v, %v", got, err)
	}
	if got, err := Eval[int64](e, "return 40 + 2"); err != nil || got != 42 {
		t.Errorf("Eval[int64]() = %v, %v", got, err)
	}

	if _, err := Eval[string](e, "return 42"); !IsKind(err, KindRuntime) {
		t.Errorf("Eval[string] on number: error = %v, want runtime kind", err)
	}
}

func TestEvalValueTable(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	v, err := e.EvalValue(`return {1, 2, 3}`)
	if err != nil {
		t.Fatalf("EvalValue() error = %v", err)
	}
	arr, ok := v.([]any)
	if !ok {
		t.Fatalf("EvalValue() = %T, want []any", v)
	}
	if len(arr) != 3 || arr[0] != int64(1) {
		t.Errorf("EvalValue() = %v", arr)
	}

	v, err = e.EvalValue(`return {name = "slime", hp = 10}`)
	if err != nil {
		t.Fatalf("EvalValue() error = %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("EvalValue() = %T, want map", v)
	}
	if m["name"] != "slime" || m["hp"] != int64(10) {
		t.Errorf("EvalValue() = %v", m)
	}
}

func TestInstructionLimit(t *testing.T) {
	cfg := UntrustedConfig()
	cfg.InstructionLimit = 100_000
	cfg.Timeout = 0
	e := newTestEngine(t, cfg, nil)

	err := e.RunScript("while true do end")
	if !IsKind(err, KindResourceLimit) {
		t.Fatalf("RunScript() error = %v, want resource-limit kind", err)
	}
	var serr *Error
	errors.As(err, &serr)
	if serr.Resource != "instruction count" {
		t.Errorf("Resource = %q, want %q", serr.Resource, "instruction count")
	}

	// The engine must stay usable after the abort.
	if e.State() != StateReady {
		t.Fatalf("State() = %v after abort, want ready", e.State())
	}
	got, err := Eval[float64](e, "return 2 + 2")
	if err != nil || got != 4.0 {
		t.Errorf("Eval() after abort = %v, %v, want 4.0", got, err)
	}
}

func TestTimeout(t *testing.T) {
	cfg := SandboxConfig{
		TrustLevel: security.TrustUntrusted,
		Timeout:    50 * time.Millisecond,
	}
	e := newTestEngine(t, cfg, nil)

	err := e.RunScript("while true do end")
	if !IsKind(err, KindTimeout) {
		t.Fatalf("RunScript() error = %v, want timeout kind", err)
	}
	var serr *Error
	errors.As(err, &serr)
	if serr.Steps == 0 {
		t.Error("timeout error should report executed steps")
	}
	if !strings.Contains(err.Error(), "timeout after") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestUsageTracking(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	if err := e.RunScript("local x = 0 for i = 1, 1000 do x = x + i end"); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}
	u := e.Usage()
	if u.Steps == 0 {
		t.Error("Usage().Steps = 0 after a run")
	}
	if u.Elapsed <= 0 {
		t.Error("Usage().Elapsed not positive")
	}
}

func TestUntrustedEntityWriteDenied(t *testing.T) {
	store := world.NewEntityStore()
	host := &hostapi.Context{Entities: store}
	e := newTestEngine(t, UntrustedConfig(), host)

	err := e.RunScript(`engine.entity.create("goblin")`)
	if !IsKind(err, KindCapabilityDenied) {
		t.Fatalf("RunScript() error = %v, want capability-denied kind", err)
	}

	var serr *Error
	errors.As(err, &serr)
	if serr.API != "entity.create" {
		t.Errorf("API = %q, want entity.create", serr.API)
	}
	if serr.Capability != security.CapabilityEntityWrite {
		t.Errorf("Capability = %v, want entity.write", serr.Capability)
	}

	// Fail-closed: the denial must have happened before any host mutation.
	if store.Count() != 0 {
		t.Errorf("entity count = %d after denial, want 0", store.Count())
	}
}

func TestTrustedEntityWrite(t *testing.T) {
	store := world.NewEntityStore()
	host := &hostapi.Context{Entities: store}
	e := newTestEngine(t, TrustedConfig(), host)

	err := e.RunScript(`
		local id = engine.entity.create("player")
		engine.entity.set_position(id, {x = 10, y = 20})
		engine.entity.move(id, 5, -5)
	`)
	if err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	if store.Count() != 1 {
		t.Fatalf("entity count = %d, want 1", store.Count())
	}
	tf, ok := store.Transform(store.IDs()[0])
	if !ok {
		t.Fatal("entity transform missing")
	}
	if tf.X != 15 || tf.Y != 15 {
		t.Errorf("transform = (%v, %v), want (15, 15)", tf.X, tf.Y)
	}
}

func TestDenialCatchableFromLua(t *testing.T) {
	host := &hostapi.Context{Entities: world.NewEntityStore()}
	e := newTestEngine(t, UntrustedConfig(), host)

	got, err := Eval[bool](e, `
		local ok, err = pcall(function() engine.entity.create("x") end)
		return ok == false and string.find(err, "capability denied") ~= nil
	`)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !got {
		t.Error("denial was not catchable with pcall")
	}
}

func TestUntrustedReadAllowed(t *testing.T) {
	store := world.NewEntityStore()
	id := store.Create("rock")
	store.SetTransform(id, hostapi.Transform{X: 3, Y: 4, ScaleX: 1, ScaleY: 1})
	host := &hostapi.Context{Entities: store}
	e := newTestEngine(t, UntrustedConfig(), host)

	got, err := Eval[float64](e, `
		local pos = engine.entity.get_position(1)
		return pos.x + pos.y
	`)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != 7 {
		t.Errorf("Eval() = %v, want 7", got)
	}
}

func TestCapabilityGrantTakesEffect(t *testing.T) {
	store := world.NewEntityStore()
	host := &hostapi.Context{Entities: store}
	e := newTestEngine(t, UntrustedConfig(), host)

	if err := e.RunScript(`engine.entity.create("x")`); !IsKind(err, KindCapabilityDenied) {
		t.Fatalf("before grant: error = %v, want capability-denied", err)
	}

	e.Caps().Grant(security.CapabilityEntityWrite)
	if err := e.RunScript(`engine.entity.create("x")`); err != nil {
		t.Fatalf("after grant: error = %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("entity count = %d, want 1", store.Count())
	}

	e.Caps().Revoke(security.CapabilityEntityWrite)
	if err := e.RunScript(`engine.entity.create("x")`); !IsKind(err, KindCapabilityDenied) {
		t.Errorf("after revoke: error = %v, want capability-denied", err)
	}
}

func TestEngineIsolation(t *testing.T) {
	a := newTestEngine(t, UntrustedConfig(), nil)
	b := newTestEngine(t, UntrustedConfig(), nil)

	if err := a.RunScript("secret = 42"); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	got, err := Eval[bool](b, "return secret == nil")
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !got {
		t.Error("global leaked between engines")
	}
}

func TestCompileError(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	err := e.RunScript("return 1 +")
	if !IsKind(err, KindCompile) {
		t.Fatalf("RunScript() error = %v, want compile kind", err)
	}
	if !strings.HasPrefix(err.Error(), "compilation error:") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestRuntimeError(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	err := e.RunScript(`error("boom")`)
	if !IsKind(err, KindRuntime) {
		t.Fatalf("RunScript() error = %v, want runtime kind", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error message = %q", err.Error())
	}

	// Runtime errors are recoverable.
	if got, err := Eval[float64](e, "return 1"); err != nil || got != 1 {
		t.Errorf("Eval() after runtime error = %v, %v", got, err)
	}
}

func TestSandboxedGlobalsRemoved(t *testing.T) {
	e := newTestEngine(t, TrustedConfig(), nil)

	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring",
		"setmetatable", "getmetatable", "rawset", "rawget",
		"require", "collectgarbage", "io", "os", "debug", "package",
	} {
		got, err := Eval[bool](e, "return "+name+" == nil")
		if err != nil {
			t.Fatalf("Eval(%s) error = %v", name, err)
		}
		if !got {
			t.Errorf("global %q is still reachable", name)
		}
	}
}

func TestCallGlobal(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	if err := e.RunScript(`
		function on_update(dt)
			return dt * 2
		end
	`); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	v, err := e.CallGlobal("on_update", 0.5)
	if err != nil {
		t.Fatalf("CallGlobal() error = %v", err)
	}
	// Integral results arrive as int64.
	if n, ok := v.(int64); !ok || n != 1 {
		t.Errorf("CallGlobal() = %v (%T), want 1", v, v)
	}

	if _, err := e.CallGlobal("missing"); !IsKind(err, KindRuntime) {
		t.Errorf("CallGlobal(missing) error = %v, want runtime kind", err)
	}
}

func TestCallGlobalHonorsLimits(t *testing.T) {
	cfg := UntrustedConfig()
	cfg.InstructionLimit = 100_000
	cfg.Timeout = 0
	e := newTestEngine(t, cfg, nil)

	if err := e.RunScript("function spin() while true do end end"); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}
	if _, err := e.CallGlobal("spin"); !IsKind(err, KindResourceLimit) {
		t.Errorf("CallGlobal(spin) error = %v, want resource-limit kind", err)
	}
}

func TestClosedEngine(t *testing.T) {
	e, err := New(UntrustedConfig(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.Close()
	e.Close() // idempotent

	if err := e.RunScript("return 1"); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("RunScript() on closed engine: error = %v", err)
	}
}

func TestEngineVersionExposed(t *testing.T) {
	e := newTestEngine(t, UntrustedConfig(), nil)

	got, err := Eval[string](e, "return engine.version")
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if got != EngineVersion {
		t.Errorf("engine.version = %q, want %q", got, EngineVersion)
	}
}

func TestEngineIDsUnique(t *testing.T) {
	a := newTestEngine(t, UntrustedConfig(), nil)
	b := newTestEngine(t, UntrustedConfig(), nil)
	if a.ID() == b.ID() {
		t.Error("two engines share an ID")
	}
}
