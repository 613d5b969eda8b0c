package modpack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/modforge/scripthost/hostapi"
	"github.com/modforge/scripthost/security"
)

// Manager manages the lifecycle of all mods: discovery, loading, enabling,
// ticking and reloading. Every mod gets its own engine and its own host
// context, so no state is shared between mods.
type Manager struct {
	mu sync.RWMutex

	loader *Loader
	mods   map[string]*Mod

	// Load order, for deterministic iteration and reverse-order teardown
	loadOrder []string

	// Event handlers (protected by mu)
	eventHandlers []EventHandler

	config ManagerConfig
	logger *slog.Logger
}

// ManagerConfig configures the mod manager.
type ManagerConfig struct {
	// ModPaths are directories to search for mods.
	ModPaths []string

	// DataRoot is where per-mod sandboxed file roots live
	// (DataRoot/<mod-name>). Empty disables the fs module for all mods.
	DataRoot string

	// FileOpsPerSecond throttles each mod's file operations. Zero means
	// unlimited.
	FileOpsPerSecond int

	// AutoEnable enables mods immediately after loading.
	AutoEnable bool

	// Approved maps a mod name to the capability names the host operator
	// has approved for it, beyond its trust level defaults.
	Approved map[string][]string

	// Host is the template context: its collaborator interfaces (entities,
	// audio, physics, input, scene, config) are shared by every mod. The
	// capability set and file policy are always per mod.
	Host *hostapi.Context

	// Logger for manager and mod output. Nil means slog.Default.
	Logger *slog.Logger
}

// EventHandler handles mod manager events. Handlers must be non-blocking
// and should not call back into the Manager. Panics in handlers are
// recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a mod manager event.
type ManagerEvent struct {
	Type  ManagerEventType
	Mod   string
	Error error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventModLoaded is emitted when a mod is loaded.
	EventModLoaded ManagerEventType = iota
	// EventModUnloaded is emitted when a mod is unloaded.
	EventModUnloaded
	// EventModEnabled is emitted when a mod is enabled.
	EventModEnabled
	// EventModDisabled is emitted when a mod is disabled.
	EventModDisabled
	// EventModReloaded is emitted when a mod is reloaded.
	EventModReloaded
	// EventModError is emitted when a mod encounters an error.
	EventModError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventModLoaded:
		return "loaded"
	case EventModUnloaded:
		return "unloaded"
	case EventModEnabled:
		return "enabled"
	case EventModDisabled:
		return "disabled"
	case EventModReloaded:
		return "reloaded"
	case EventModError:
		return "error"
	default:
		return "unknown"
	}
}

// NewManager creates a new mod manager.
func NewManager(config ManagerConfig) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		loader:    NewLoader(WithPaths(config.ModPaths...)),
		mods:      make(map[string]*Mod),
		loadOrder: make([]string, 0),
		config:    config,
		logger:    logger,
	}
}

// Discover searches for available mods.
func (m *Manager) Discover() ([]*ModInfo, error) {
	return m.loader.Discover()
}

// hostContextFor builds the per-mod host context: shared collaborators from
// the template, a fresh file policy rooted in the mod's data directory, and
// its own rate limiter. The capability set is installed by the engine.
func (m *Manager) hostContextFor(manifest *Manifest) (*hostapi.Context, error) {
	ctx := &hostapi.Context{}
	if m.config.Host != nil {
		shared := *m.config.Host
		ctx = &shared
	}
	ctx.Caps = nil
	ctx.Logger = m.logger.With("mod", manifest.Name)

	if m.config.DataRoot != "" {
		policy, err := security.NewPathPolicy(filepath.Join(m.config.DataRoot, manifest.Name))
		if err != nil {
			return nil, fmt.Errorf("mod data root: %w", err)
		}
		ctx.Files = policy
		ctx.FileOps = security.NewRateLimiter(m.config.FileOpsPerSecond)
	} else {
		ctx.Files = nil
		ctx.FileOps = nil
	}
	return ctx, nil
}

// approvedFor parses the operator-approved capability names for a mod.
func (m *Manager) approvedFor(name string) []security.Capability {
	names := m.config.Approved[name]
	caps := make([]security.Capability, 0, len(names))
	for _, n := range names {
		if c, ok := security.ParseCapability(n); ok {
			caps = append(caps, c)
		}
	}
	return caps
}

// Load loads a mod by name. If the mod is already loaded, returns
// ErrAlreadyLoaded.
func (m *Manager) Load(ctx context.Context, name string) (*Mod, error) {
	m.mu.Lock()
	if _, exists := m.mods[name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("mod %q: %w", name, ErrAlreadyLoaded)
	}
	m.mu.Unlock()

	info, err := m.loader.Find(name)
	if err != nil {
		return nil, err
	}
	if err := m.checkDependencies(info.Manifest); err != nil {
		return nil, err
	}

	hostCtx, err := m.hostContextFor(info.Manifest)
	if err != nil {
		return nil, err
	}
	mod, err := NewMod(info.Manifest, hostCtx, m.approvedFor(info.Manifest.Name))
	if err != nil {
		return nil, err
	}

	// Long operation, outside the lock.
	if err := mod.Load(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventModError, Mod: name, Error: err})
		return nil, fmt.Errorf("failed to load mod %q: %w", name, err)
	}

	m.mu.Lock()
	if _, exists := m.mods[name]; exists {
		m.mu.Unlock()
		_ = mod.Unload(ctx)
		return nil, fmt.Errorf("mod %q: %w", name, ErrAlreadyLoaded)
	}
	m.mods[name] = mod
	m.loadOrder = append(m.loadOrder, name)
	m.mu.Unlock()

	m.logger.Info("mod loaded",
		"mod", name,
		"version", info.Manifest.Version,
		"trust", info.Manifest.Trust,
		"instance", mod.InstanceID())
	m.emitEvent(ManagerEvent{Type: EventModLoaded, Mod: name})

	if m.config.AutoEnable {
		if err := mod.Enable(ctx); err != nil {
			m.emitEvent(ManagerEvent{Type: EventModError, Mod: name, Error: err})
			// Mod stays loaded but disabled.
		} else {
			m.emitEvent(ManagerEvent{Type: EventModEnabled, Mod: name})
		}
	}
	return mod, nil
}

// checkDependencies verifies that every declared dependency is already
// loaded.
func (m *Manager) checkDependencies(manifest *Manifest) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, dep := range manifest.Dependencies {
		if _, ok := m.mods[dep]; !ok {
			return fmt.Errorf("%w: %q requires %q", ErrDependencyNotFound, manifest.Name, dep)
		}
	}
	return nil
}

// LoadAll discovers and loads every mod.
func (m *Manager) LoadAll(ctx context.Context) error {
	mods, err := m.loader.Discover()
	if err != nil {
		return err
	}

	var loadErrors []error
	for _, info := range mods {
		if info.Error != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", info.Name, info.Error))
			continue
		}
		if _, err := m.Load(ctx, info.Name); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", info.Name, err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d mods: %w", len(loadErrors), errors.Join(loadErrors...))
	}
	return nil
}

// Unload unloads a mod by name.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	mod, exists := m.mods[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("mod %q: %w", name, ErrModNotFound)
	}
	delete(m.mods, name)
	m.removeFromLoadOrder(name)
	m.mu.Unlock()

	if mod.State() == StateEnabled {
		if err := mod.Disable(ctx); err != nil {
			m.emitEvent(ManagerEvent{Type: EventModError, Mod: name, Error: err})
		} else {
			m.emitEvent(ManagerEvent{Type: EventModDisabled, Mod: name})
		}
	}

	if err := mod.Unload(ctx); err != nil {
		return fmt.Errorf("failed to unload mod %q: %w", name, err)
	}

	m.logger.Info("mod unloaded", "mod", name)
	m.emitEvent(ManagerEvent{Type: EventModUnloaded, Mod: name})
	return nil
}

// UnloadAll unloads all mods in reverse load order.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, len(m.loadOrder))
	for i, name := range m.loadOrder {
		names[len(m.loadOrder)-1-i] = name
	}
	m.mu.RUnlock()

	var unloadErrors []error
	for _, name := range names {
		if err := m.Unload(ctx, name); err != nil {
			unloadErrors = append(unloadErrors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(unloadErrors) > 0 {
		return fmt.Errorf("failed to unload %d mods: %w", len(unloadErrors), errors.Join(unloadErrors...))
	}
	return nil
}

// Enable enables a loaded mod.
func (m *Manager) Enable(ctx context.Context, name string) error {
	mod, exists := m.Get(name)
	if !exists {
		return fmt.Errorf("mod %q: %w", name, ErrModNotFound)
	}

	if err := mod.Enable(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventModError, Mod: name, Error: err})
		return err
	}
	m.emitEvent(ManagerEvent{Type: EventModEnabled, Mod: name})
	return nil
}

// Disable disables an enabled mod.
func (m *Manager) Disable(ctx context.Context, name string) error {
	mod, exists := m.Get(name)
	if !exists {
		return fmt.Errorf("mod %q: %w", name, ErrModNotFound)
	}

	if err := mod.Disable(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventModError, Mod: name, Error: err})
		return err
	}
	m.emitEvent(ManagerEvent{Type: EventModDisabled, Mod: name})
	return nil
}

// Reload reloads a mod (unload + re-discover + load).
func (m *Manager) Reload(ctx context.Context, name string) error {
	m.mu.RLock()
	mod, exists := m.mods[name]
	if !exists {
		m.mu.RUnlock()
		return fmt.Errorf("mod %q: %w", name, ErrModNotFound)
	}
	wasEnabled := mod.State() == StateEnabled
	m.mu.RUnlock()

	if err := m.Unload(ctx, name); err != nil {
		return fmt.Errorf("reload unload failed: %w", err)
	}
	if _, err := m.loader.Refresh(); err != nil {
		return fmt.Errorf("reload refresh failed: %w", err)
	}
	newMod, err := m.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("reload load failed: %w", err)
	}

	if wasEnabled && !m.config.AutoEnable {
		if err := newMod.Enable(ctx); err != nil {
			m.emitEvent(ManagerEvent{Type: EventModError, Mod: name, Error: err})
		}
	}

	m.emitEvent(ManagerEvent{Type: EventModReloaded, Mod: name})
	return nil
}

// Update ticks every enabled mod in load order. A mod whose tick fails is
// reported through the event stream but does not stop the others.
func (m *Manager) Update(dt float64) {
	m.mu.RLock()
	mods := make([]*Mod, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if mod, exists := m.mods[name]; exists {
			mods = append(mods, mod)
		}
	}
	m.mu.RUnlock()

	for _, mod := range mods {
		if err := mod.Update(dt); err != nil {
			m.logger.Warn("mod tick failed", "mod", mod.Name(), "error", err)
			m.emitEvent(ManagerEvent{Type: EventModError, Mod: mod.Name(), Error: err})
		}
	}
}

// Get returns a mod by name.
func (m *Manager) Get(name string) (*Mod, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mod, exists := m.mods[name]
	return mod, exists
}

// List returns all loaded mods in load order.
func (m *Manager) List() []*Mod {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Mod, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if mod, exists := m.mods[name]; exists {
			result = append(result, mod)
		}
	}
	return result
}

// Count returns the number of loaded mods.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mods)
}

// Subscribe adds an event handler. Returns an unsubscribe function.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

// Loader returns the underlying loader for advanced operations.
func (m *Manager) Loader() *Loader {
	return m.loader
}

// emitEvent sends an event to all handlers, outside any locks, with panic
// recovery.
func (m *Manager) emitEvent(event ManagerEvent) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				recover()
			}()
			handler(event)
		}()
	}
}

// removeFromLoadOrder removes a name from the load order slice. Must be
// called with mu held.
func (m *Manager) removeFromLoadOrder(name string) {
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			return
		}
	}
}
