package modpack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/modforge/scripthost/hostapi"
	"github.com/modforge/scripthost/script"
	"github.com/modforge/scripthost/security"
	"github.com/modforge/scripthost/world"
)

const lifecycleScript = `
events = {}
ticks = 0

function on_load()
	table.insert(events, "load")
end

function on_enable()
	table.insert(events, "enable")
end

function on_disable()
	table.insert(events, "disable")
end

function on_update(dt)
	ticks = ticks + dt
end
`

func newTestManager(t *testing.T, base string, cfg ManagerConfig) *Manager {
	t.Helper()
	cfg.ModPaths = []string{base}
	m := NewManager(cfg)
	t.Cleanup(func() { _ = m.UnloadAll(context.Background()) })
	return m
}

func TestManagerLoadLifecycle(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "lifecycle", `{"name": "lifecycle"}`, lifecycleScript)
	m := newTestManager(t, base, ManagerConfig{})
	ctx := context.Background()

	mod, err := m.Load(ctx, "lifecycle")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mod.State() != StateLoaded {
		t.Errorf("State() = %v, want loaded", mod.State())
	}

	if err := m.Enable(ctx, "lifecycle"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if mod.State() != StateEnabled {
		t.Errorf("State() = %v, want enabled", mod.State())
	}

	m.Update(0.5)
	m.Update(0.5)
	ticks, err := script.Eval[float64](mod.Engine(), "return ticks")
	if err != nil || ticks != 1.0 {
		t.Errorf("ticks = %v, %v, want 1.0", ticks, err)
	}

	if err := m.Disable(ctx, "lifecycle"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	m.Update(1)
	ticks, _ = script.Eval[float64](mod.Engine(), "return ticks")
	if ticks != 1.0 {
		t.Errorf("disabled mod ticked: %v", ticks)
	}

	order, err := script.Eval[string](mod.Engine(), `return table.concat(events, ",")`)
	if err != nil || order != "load,enable,disable" {
		t.Errorf("hook order = %q, %v", order, err)
	}

	if err := m.Unload(ctx, "lifecycle"); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d after unload", m.Count())
	}
}

func TestManagerAutoEnable(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "auto", `{"name": "auto"}`, "x = 1")
	m := newTestManager(t, base, ManagerConfig{AutoEnable: true})

	mod, err := m.Load(context.Background(), "auto")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if mod.State() != StateEnabled {
		t.Errorf("State() = %v, want enabled", mod.State())
	}
}

func TestManagerDoubleLoad(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "once", `{"name": "once"}`, "x = 1")
	m := newTestManager(t, base, ManagerConfig{})
	ctx := context.Background()

	if _, err := m.Load(ctx, "once"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(ctx, "once"); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load() error = %v, want already loaded", err)
	}
}

func TestManagerSharedWorldPerModEngines(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "writer", `{"name": "writer", "trust": "trusted"}`,
		`engine.entity.create("from-writer")`)
	writeMod(t, base, "counter", `{"name": "counter"}`,
		`pos = engine.entity.get_position(1)`)

	store := world.NewEntityStore()
	m := newTestManager(t, base, ManagerConfig{Host: &hostapi.Context{Entities: store}})
	ctx := context.Background()

	if _, err := m.Load(ctx, "writer"); err != nil {
		t.Fatalf("Load(writer) error = %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("entity count = %d, want 1", store.Count())
	}

	// Both mods see the same world, but each has its own interpreter.
	writer, _ := m.Get("writer")
	if _, err := m.Load(ctx, "counter"); err != nil {
		t.Fatalf("Load(counter) error = %v", err)
	}
	counter, _ := m.Get("counter")
	if writer.Engine() == counter.Engine() {
		t.Error("mods share an engine")
	}
	if writer.InstanceID() == counter.InstanceID() {
		t.Error("mods share an instance ID")
	}
}

func TestManagerCapabilityApproval(t *testing.T) {
	// config.write requires operator approval, so an untrusted mod
	// requesting it must fail to load until it is on the approved list.
	base := t.TempDir()
	writeMod(t, base, "needy", `{"name": "needy", "capabilities": ["config.write"]}`, "x = 1")
	ctx := context.Background()

	m := newTestManager(t, base, ManagerConfig{})
	if _, err := m.Load(ctx, "needy"); !errors.Is(err, ErrGrantNotApproved) {
		t.Errorf("Load(needy) error = %v, want grant not approved", err)
	}

	m2 := newTestManager(t, base, ManagerConfig{
		Approved: map[string][]string{"needy": {"config.write"}},
	})
	mod, err := m2.Load(ctx, "needy")
	if err != nil {
		t.Fatalf("Load(needy) with approval error = %v", err)
	}
	if !mod.Engine().Caps().Has(security.CapabilityConfigWrite) {
		t.Error("approved capability not granted")
	}
}

func TestManagerUnapprovedNonCriticalGranted(t *testing.T) {
	// entity.write does not require approval, so an untrusted mod
	// requesting it just gets it.
	base := t.TempDir()
	writeMod(t, base, "mover", `{"name": "mover", "capabilities": ["entity.write"]}`,
		`engine.entity.create("x")`)

	store := world.NewEntityStore()
	m := newTestManager(t, base, ManagerConfig{Host: &hostapi.Context{Entities: store}})

	if _, err := m.Load(context.Background(), "mover"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("entity count = %d, want 1", store.Count())
	}
}

func TestManagerDependencies(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "core", `{"name": "core"}`, "x = 1")
	writeMod(t, base, "addon", `{"name": "addon", "dependencies": ["core"]}`, "x = 1")
	m := newTestManager(t, base, ManagerConfig{})
	ctx := context.Background()

	if _, err := m.Load(ctx, "addon"); !errors.Is(err, ErrDependencyNotFound) {
		t.Errorf("Load(addon) without core: error = %v", err)
	}

	if _, err := m.Load(ctx, "core"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load(ctx, "addon"); err != nil {
		t.Errorf("Load(addon) with core: error = %v", err)
	}
}

func TestManagerReloadPicksUpChanges(t *testing.T) {
	base := t.TempDir()
	dir := writeMod(t, base, "evolving", `{"name": "evolving"}`, "answer = 1")
	m := newTestManager(t, base, ManagerConfig{})
	ctx := context.Background()

	mod, err := m.Load(ctx, "evolving")
	if err != nil {
		t.Fatal(err)
	}
	oldID := mod.InstanceID()

	if err := os.WriteFile(filepath.Join(dir, "main.lua"), []byte("answer = 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := m.Reload(ctx, "evolving"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	mod, _ = m.Get("evolving")
	if mod.InstanceID() == oldID {
		t.Error("reload kept the old instance ID")
	}
	answer, err := script.Eval[int64](mod.Engine(), "return answer")
	if err != nil || answer != 2 {
		t.Errorf("answer = %v, %v, want 2", answer, err)
	}
}

func TestManagerEvents(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "noisy", `{"name": "noisy"}`, "x = 1")
	m := newTestManager(t, base, ManagerConfig{})
	ctx := context.Background()

	var events []ManagerEventType
	unsubscribe := m.Subscribe(func(e ManagerEvent) {
		events = append(events, e.Type)
	})

	if _, err := m.Load(ctx, "noisy"); err != nil {
		t.Fatal(err)
	}
	if err := m.Unload(ctx, "noisy"); err != nil {
		t.Fatal(err)
	}
	unsubscribe()

	want := []ManagerEventType{EventModLoaded, EventModUnloaded}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestManagerLoadAll(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "one", `{"name": "one"}`, "x = 1")
	writeMod(t, base, "two", `{"name": "two"}`, "x = 2")
	m := newTestManager(t, base, ManagerConfig{})

	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	names := make([]string, 0, 2)
	for _, mod := range m.List() {
		names = append(names, mod.Name())
	}
	if len(names) != 2 || names[0] != "one" || names[1] != "two" {
		t.Errorf("List() = %v", names)
	}
}

func TestManagerFaultyModDoesNotLoad(t *testing.T) {
	base := t.TempDir()
	writeMod(t, base, "crasher", `{"name": "crasher"}`, `error("boom on load")`)
	m := newTestManager(t, base, ManagerConfig{})

	if _, err := m.Load(context.Background(), "crasher"); err == nil {
		t.Fatal("Load() succeeded for a crashing mod")
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}
}
