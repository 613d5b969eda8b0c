package modpack

import "errors"

// Mod system errors.
var (
	// ErrModNotFound is returned when a mod cannot be located.
	ErrModNotFound = errors.New("mod not found")

	// ErrNoEntryPoint is returned when a mod has no valid entry point.
	ErrNoEntryPoint = errors.New("mod has no entry point (main.lua)")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrAlreadyLoaded is returned when attempting to load an already loaded mod.
	ErrAlreadyLoaded = errors.New("mod is already loaded")

	// ErrNotLoaded is returned when attempting to use an unloaded mod.
	ErrNotLoaded = errors.New("mod is not loaded")

	// ErrDependencyNotFound is returned when a required dependency is missing.
	ErrDependencyNotFound = errors.New("mod dependency not found")

	// ErrGrantNotApproved is returned when a mod requests a capability that
	// needs explicit host approval and none was configured.
	ErrGrantNotApproved = errors.New("requested capability requires approval")
)
