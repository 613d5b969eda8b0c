package modpack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Loader discovers mods from the filesystem.
type Loader struct {
	// Search paths for mods (checked in order)
	paths []string

	// Discovered mods cache
	discovered map[string]*ModInfo
}

// ModInfo contains discovery information about a mod.
type ModInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	State    State
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the mod search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new mod loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		discovered: make(map[string]*ModInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover finds all mods in the search paths. Returns mods sorted by name;
// when the same name appears in multiple paths the first path wins.
func (l *Loader) Discover() ([]*ModInfo, error) {
	l.discovered = make(map[string]*ModInfo)

	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			// Missing paths are not errors
			continue
		}
	}

	mods := make([]*ModInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		mods = append(mods, info)
	}
	sort.Slice(mods, func(i, j int) bool {
		return mods[i].Name < mods[j].Name
	})
	return mods, nil
}

func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		modPath := filepath.Join(basePath, entry.Name())
		info := l.inspectMod(entry.Name(), modPath)
		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}
	return nil
}

// inspectMod examines a mod directory and returns its info.
func (l *Loader) inspectMod(name, path string) *ModInfo {
	info := &ModInfo{
		Name:  name,
		Path:  path,
		State: StateUnloaded,
	}

	manifestPath := filepath.Join(path, ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			info.State = StateError
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name
		return info
	}

	// No manifest - accept a bare main.lua with defaults.
	mainPath := filepath.Join(path, "main.lua")
	if _, err := os.Stat(mainPath); err == nil {
		m := &Manifest{Name: name, path: path}
		m.applyDefaults()
		if err := m.Validate(); err != nil {
			info.Error = err
			info.State = StateError
			return info
		}
		info.Manifest = m
		return info
	}

	info.Error = ErrNoEntryPoint
	info.State = StateError
	return info
}

// Get returns info for a specific mod by name.
func (l *Loader) Get(name string) (*ModInfo, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// Find searches for a mod by name across all paths. Returns the first match.
func (l *Loader) Find(name string) (*ModInfo, error) {
	if info, ok := l.discovered[name]; ok {
		return info, nil
	}

	for _, basePath := range l.paths {
		modPath := filepath.Join(basePath, name)
		if stat, err := os.Stat(modPath); err == nil && stat.IsDir() {
			info := l.inspectMod(name, modPath)
			if info.Error == nil {
				l.discovered[name] = info
				return info, nil
			}
			return nil, info.Error
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModNotFound, name)
}

// Refresh re-discovers mods.
func (l *Loader) Refresh() ([]*ModInfo, error) {
	return l.Discover()
}

// ListNames returns the names of all discovered mods, sorted.
func (l *Loader) ListNames() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of discovered mods.
func (l *Loader) Count() int {
	return len(l.discovered)
}

// Errors returns all discovered mods that have errors.
func (l *Loader) Errors() []*ModInfo {
	var errored []*ModInfo
	for _, info := range l.discovered {
		if info.Error != nil {
			errored = append(errored, info)
		}
	}
	return errored
}
