package modpack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/modforge/scripthost/security"
)

// ManifestFile is the file name every mod directory must contain.
const ManifestFile = "mod.json"

// Manifest describes a mod's metadata, entry point and requested
// capabilities.
type Manifest struct {
	// Identity
	Name        string `json:"name"`        // Unique identifier (e.g., "better-minimap")
	Version     string `json:"version"`     // Semver (e.g., "1.2.0")
	DisplayName string `json:"displayName"` // Human-readable name
	Description string `json:"description"` // Short description
	Author      string `json:"author"`      // Author name or org
	Homepage    string `json:"homepage"`    // URL to mod homepage

	// Entry point
	Main string `json:"main"` // Relative path to main Lua file (default: "main.lua")

	// Requirements
	MinEngineVersion string   `json:"minEngineVersion"` // Minimum engine version
	Dependencies     []string `json:"dependencies"`     // Required mods

	// Trust declared by the distribution channel. Unknown values reject;
	// an empty value means untrusted.
	Trust string `json:"trust"`

	// Capabilities requested beyond the trust level defaults.
	Capabilities []string `json:"capabilities"`

	// Internal: path to the mod directory
	path string
}

// Validation errors.
var (
	ErrMissingName       = errors.New("manifest: name is required")
	ErrInvalidName       = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrMissingVersion    = errors.New("manifest: version is required")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrInvalidMain       = errors.New("manifest: main must be a .lua file")
	ErrInvalidTrust      = errors.New("manifest: invalid trust level")
	ErrInvalidCapability = errors.New("manifest: invalid capability")
)

// namePattern validates mod names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// LoadManifest loads and validates a mod manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads a manifest from a mod directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "main.lua"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
	if m.Trust == "" {
		m.Trust = security.TrustUntrusted.String()
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	if _, ok := security.ParseTrustLevel(m.Trust); !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTrust, m.Trust)
	}

	for _, name := range m.Capabilities {
		if _, ok := security.ParseCapability(name); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidCapability, name)
		}
	}
	return nil
}

// TrustLevel returns the declared trust level. Call Validate first; an
// unparseable value falls back to untrusted.
func (m *Manifest) TrustLevel() security.TrustLevel {
	level, ok := security.ParseTrustLevel(m.Trust)
	if !ok {
		return security.TrustUntrusted
	}
	return level
}

// RequestedCapabilities returns the parsed extra capabilities. Invalid
// names are skipped; Validate rejects them up front.
func (m *Manifest) RequestedCapabilities() []security.Capability {
	caps := make([]security.Capability, 0, len(m.Capabilities))
	for _, name := range m.Capabilities {
		if c, ok := security.ParseCapability(name); ok {
			caps = append(caps, c)
		}
	}
	return caps
}

// Path returns the path to the mod directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}
