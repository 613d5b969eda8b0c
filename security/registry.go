package security

// CapabilityInfo provides metadata about a capability, used by grant policy
// and any surface that explains what a trust level unlocks.
type CapabilityInfo struct {
	// Name is the capability identifier.
	Name Capability

	// DisplayName is a human-readable name.
	DisplayName string

	// Description explains what the capability allows.
	Description string

	// RiskLevel indicates how dangerous this capability is.
	RiskLevel RiskLevel

	// RequiresApproval indicates the host must explicitly approve a
	// manifest request for this capability.
	RequiresApproval bool
}

// RiskLevel indicates the security risk of a capability.
type RiskLevel int

const (
	// RiskLow indicates minimal security risk.
	RiskLow RiskLevel = iota

	// RiskMedium indicates moderate security risk.
	RiskMedium

	// RiskHigh indicates significant security risk.
	RiskHigh

	// RiskCritical indicates maximum security risk.
	RiskCritical
)

// String returns a string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// capabilityRegistry holds metadata about all known capabilities. Indexed by
// the Capability enum so a missing entry is a compile-visible gap in the
// array literal rather than a silent map miss.
var capabilityRegistry = [numCapabilities]CapabilityInfo{
	CapabilityLogging: {
		Name:        CapabilityLogging,
		DisplayName: "Logging",
		Description: "Write messages to the host log",
		RiskLevel:   RiskLow,
	},
	CapabilityEntityRead: {
		Name:        CapabilityEntityRead,
		DisplayName: "Entity Read",
		Description: "Read entity transforms",
		RiskLevel:   RiskLow,
	},
	CapabilityEntityWrite: {
		Name:        CapabilityEntityWrite,
		DisplayName: "Entity Write",
		Description: "Create and mutate entities",
		RiskLevel:   RiskMedium,
	},
	CapabilityPhysicsRaycast: {
		Name:        CapabilityPhysicsRaycast,
		DisplayName: "Physics Queries",
		Description: "Perform raycasts and collision checks",
		RiskLevel:   RiskLow,
	},
	CapabilityAudioPlay: {
		Name:        CapabilityAudioPlay,
		DisplayName: "Audio Playback",
		Description: "Play, stop and adjust audio clips",
		RiskLevel:   RiskLow,
	},
	CapabilityInput: {
		Name:        CapabilityInput,
		DisplayName: "Input State",
		Description: "Read keyboard, mouse and axis state",
		RiskLevel:   RiskLow,
	},
	CapabilityTime: {
		Name:        CapabilityTime,
		DisplayName: "Game Time",
		Description: "Read the game clock",
		RiskLevel:   RiskLow,
	},
	CapabilityMath: {
		Name:        CapabilityMath,
		DisplayName: "Math Utilities",
		Description: "Extended math helpers",
		RiskLevel:   RiskLow,
	},
	CapabilityConfigRead: {
		Name:        CapabilityConfigRead,
		DisplayName: "Config Read",
		Description: "Read game configuration values",
		RiskLevel:   RiskMedium,
	},
	CapabilityConfigWrite: {
		Name:             CapabilityConfigWrite,
		DisplayName:      "Config Write",
		Description:      "Modify game configuration values",
		RiskLevel:        RiskHigh,
		RequiresApproval: true,
	},
	CapabilityDebug: {
		Name:             CapabilityDebug,
		DisplayName:      "Debug Access",
		Description:      "Debug introspection of engine state",
		RiskLevel:        RiskHigh,
		RequiresApproval: true,
	},
	CapabilityFileSystem: {
		Name:             CapabilityFileSystem,
		DisplayName:      "File Access",
		Description:      "Read and write files inside the mod data root",
		RiskLevel:        RiskCritical,
		RequiresApproval: true,
	},
}

// GetCapabilityInfo returns information about a capability.
func GetCapabilityInfo(c Capability) (CapabilityInfo, bool) {
	if !c.Valid() {
		return CapabilityInfo{}, false
	}
	return capabilityRegistry[c], true
}

// RequiresApproval reports whether granting c needs an explicit host
// approval on top of the mod's trust level.
func RequiresApproval(c Capability) bool {
	info, ok := GetCapabilityInfo(c)
	return ok && info.RequiresApproval
}

// ApprovalRequired returns the capabilities a host must explicitly approve.
func ApprovalRequired() []Capability {
	var caps []Capability
	for _, info := range capabilityRegistry {
		if info.RequiresApproval {
			caps = append(caps, info.Name)
		}
	}
	return caps
}
