package modpack

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/modforge/scripthost/hostapi"
	"github.com/modforge/scripthost/script"
	"github.com/modforge/scripthost/security"
)

// Lifecycle hooks a mod may define.
const (
	hookLoad    = "on_load"
	hookEnable  = "on_enable"
	hookDisable = "on_disable"
	hookUnload  = "on_unload"
	hookUpdate  = "on_update"
)

// Mod is one loaded mod: its manifest, its isolated engine, and its
// lifecycle state.
type Mod struct {
	mu sync.RWMutex

	manifest   *Manifest
	instanceID uuid.UUID
	hostCtx    *hostapi.Context
	approved   map[security.Capability]bool

	engine *script.Engine
	state  State
	err    error
}

// NewMod creates a mod around a manifest and the host context its engine
// will expose. approved lists the capabilities the host has explicitly
// approved for this mod, beyond its trust level defaults.
func NewMod(manifest *Manifest, host *hostapi.Context, approved []security.Capability) (*Mod, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	approvedSet := make(map[security.Capability]bool, len(approved))
	for _, c := range approved {
		approvedSet[c] = true
	}

	return &Mod{
		manifest:   manifest,
		instanceID: uuid.New(),
		hostCtx:    host,
		approved:   approvedSet,
		state:      StateUnloaded,
	}, nil
}

// configForTrust maps a trust level onto its sandbox preset.
func configForTrust(level security.TrustLevel) script.SandboxConfig {
	switch level {
	case security.TrustTrusted:
		return script.TrustedConfig()
	case security.TrustVerified:
		return script.VerifiedConfig()
	default:
		return script.UntrustedConfig()
	}
}

// Load builds the mod's engine, grants its requested capabilities and runs
// its entry point.
func (m *Mod) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUnloaded && m.state != StateError {
		return fmt.Errorf("mod %q: %w", m.manifest.Name, ErrAlreadyLoaded)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	engine, err := script.New(configForTrust(m.manifest.TrustLevel()), m.hostCtx)
	if err != nil {
		return m.fail(err)
	}

	if err := m.grantRequested(engine); err != nil {
		engine.Close()
		return m.fail(err)
	}

	source, err := os.ReadFile(m.manifest.MainPath())
	if err != nil {
		engine.Close()
		return m.fail(fmt.Errorf("reading entry point: %w", err))
	}
	if err := engine.RunScript(string(source)); err != nil {
		engine.Close()
		return m.fail(err)
	}

	m.engine = engine
	if engine.HasGlobal(hookLoad) {
		if _, err := engine.CallGlobal(hookLoad); err != nil {
			engine.Close()
			m.engine = nil
			return m.fail(err)
		}
	}

	m.state = StateLoaded
	m.err = nil
	return nil
}

// grantRequested applies the manifest's extra capability requests. Anything
// the trust level already covers is a no-op; approval-required capabilities
// must be on the approved list.
func (m *Mod) grantRequested(engine *script.Engine) error {
	for _, c := range m.manifest.RequestedCapabilities() {
		if engine.Caps().Has(c) {
			continue
		}
		if security.RequiresApproval(c) && !m.approved[c] {
			return fmt.Errorf("%w: %s", ErrGrantNotApproved, c)
		}
		engine.Caps().Grant(c)
	}
	return nil
}

// Enable marks the mod active and calls its on_enable hook.
func (m *Mod) Enable(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateEnabled {
		return nil
	}
	if m.state != StateLoaded {
		return fmt.Errorf("mod %q: %w", m.manifest.Name, ErrNotLoaded)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.engine.HasGlobal(hookEnable) {
		if _, err := m.engine.CallGlobal(hookEnable); err != nil {
			return m.fail(err)
		}
	}
	m.state = StateEnabled
	return nil
}

// Disable calls the mod's on_disable hook and stops ticking it.
func (m *Mod) Disable(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateEnabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.engine.HasGlobal(hookDisable) {
		if _, err := m.engine.CallGlobal(hookDisable); err != nil {
			return m.fail(err)
		}
	}
	m.state = StateLoaded
	return nil
}

// Unload tears the mod down and releases its engine.
func (m *Mod) Unload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.engine == nil {
		m.state = StateUnloaded
		return nil
	}

	// Best effort; the engine goes away regardless.
	if m.engine.HasGlobal(hookUnload) {
		_, _ = m.engine.CallGlobal(hookUnload)
	}
	m.engine.Close()
	m.engine = nil
	m.state = StateUnloaded
	return nil
}

// Update ticks the mod. Mods without an on_update hook are skipped.
func (m *Mod) Update(dt float64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateEnabled || !m.engine.HasGlobal(hookUpdate) {
		return nil
	}
	_, err := m.engine.CallGlobal(hookUpdate, dt)
	return err
}

// Call invokes a global function the mod defined.
func (m *Mod) Call(fn string, args ...any) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.state.IsUsable() {
		return nil, fmt.Errorf("mod %q: %w", m.manifest.Name, ErrNotLoaded)
	}
	return m.engine.CallGlobal(fn, args...)
}

// fail records the error and flips the mod into the error state. Caller
// holds m.mu.
func (m *Mod) fail(err error) error {
	m.state = StateError
	m.err = err
	return err
}

// Name returns the mod name.
func (m *Mod) Name() string {
	return m.manifest.Name
}

// Manifest returns the mod's manifest.
func (m *Mod) Manifest() *Manifest {
	return m.manifest
}

// InstanceID returns the unique ID of this loaded instance. A reload
// produces a new ID.
func (m *Mod) InstanceID() uuid.UUID {
	return m.instanceID
}

// State returns the mod's lifecycle state.
func (m *Mod) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Error returns the last error, if the mod is in the error state.
func (m *Mod) Error() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Engine returns the mod's engine, nil when unloaded.
func (m *Mod) Engine() *script.Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}
