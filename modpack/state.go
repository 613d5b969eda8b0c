package modpack

// State represents the lifecycle state of a mod.
type State int

// Mod states.
const (
	// StateUnloaded - Mod is not loaded.
	StateUnloaded State = iota

	// StateLoaded - Mod code has run but the mod is not receiving ticks.
	StateLoaded

	// StateEnabled - Mod is enabled and receiving ticks.
	StateEnabled

	// StateError - Mod encountered an error.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateEnabled:
		return "enabled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the mod can be called (loaded or enabled).
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateEnabled
}
