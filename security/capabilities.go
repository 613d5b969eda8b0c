// Package security provides the capability and trust model for sandboxed
// scripts. Every privileged host operation is gated on a Capability, and the
// set of capabilities a script starts with is derived from its TrustLevel.
package security

import (
	"fmt"
	"sort"
	"sync"
)

// Capability names one discrete permission a script context can hold.
//
// The set is closed: the host API bridge registers every gated function with
// an explicit Capability value, so adding a new gated function without
// declaring its capability does not compile.
type Capability int

// All capabilities. The zero value is CapabilityLogging on purpose: the most
// harmless permission, granted at every trust level.
const (
	// CapabilityLogging allows print/log output through the host logger.
	CapabilityLogging Capability = iota

	// CapabilityEntityRead allows reading entity transforms.
	CapabilityEntityRead

	// CapabilityEntityWrite allows creating and mutating entities.
	CapabilityEntityWrite

	// CapabilityPhysicsRaycast allows raycasts and collision queries.
	CapabilityPhysicsRaycast

	// CapabilityAudioPlay allows triggering audio playback.
	CapabilityAudioPlay

	// CapabilityInput allows reading the input snapshot for the frame.
	CapabilityInput

	// CapabilityTime allows reading game time.
	CapabilityTime

	// CapabilityMath allows the extended math helpers.
	CapabilityMath

	// CapabilityConfigRead allows reading game configuration values.
	CapabilityConfigRead

	// CapabilityConfigWrite allows modifying game configuration values.
	CapabilityConfigWrite

	// CapabilityDebug allows debug introspection functions.
	CapabilityDebug

	// CapabilityFileSystem allows file access inside the mod data root.
	CapabilityFileSystem

	numCapabilities // sentinel, keep last
)

// capabilityNames are the stable wire names used in mod manifests.
var capabilityNames = [numCapabilities]string{
	CapabilityLogging:        "logging",
	CapabilityEntityRead:     "entity.read",
	CapabilityEntityWrite:    "entity.write",
	CapabilityPhysicsRaycast: "physics.raycast",
	CapabilityAudioPlay:      "audio.play",
	CapabilityInput:          "input",
	CapabilityTime:           "time",
	CapabilityMath:           "math",
	CapabilityConfigRead:     "config.read",
	CapabilityConfigWrite:    "config.write",
	CapabilityDebug:          "debug",
	CapabilityFileSystem:     "filesystem",
}

// String returns the manifest name of the capability.
func (c Capability) String() string {
	if c < 0 || c >= numCapabilities {
		return fmt.Sprintf("capability(%d)", int(c))
	}
	return capabilityNames[c]
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	return c >= 0 && c < numCapabilities
}

// ParseCapability resolves a manifest name to a Capability.
func ParseCapability(name string) (Capability, bool) {
	for c, n := range capabilityNames {
		if n == name {
			return Capability(c), true
		}
	}
	return 0, false
}

// AllCapabilities returns every known capability in enum order.
func AllCapabilities() []Capability {
	caps := make([]Capability, 0, numCapabilities)
	for c := Capability(0); c < numCapabilities; c++ {
		caps = append(caps, c)
	}
	return caps
}

// TrustLevel classifies where a script came from. The ordering is
// load-bearing: DefaultCapabilities is monotonic in it.
type TrustLevel int

const (
	// TrustUntrusted is for community mods - most restricted.
	TrustUntrusted TrustLevel = iota

	// TrustVerified is for verified/signed mods - some additional access.
	TrustVerified

	// TrustTrusted is for developer scripts - full access.
	TrustTrusted
)

// String returns a string representation of the trust level.
func (t TrustLevel) String() string {
	switch t {
	case TrustUntrusted:
		return "untrusted"
	case TrustVerified:
		return "verified"
	case TrustTrusted:
		return "trusted"
	default:
		return "unknown"
	}
}

// ParseTrustLevel resolves a config name to a TrustLevel.
func ParseTrustLevel(name string) (TrustLevel, bool) {
	switch name {
	case "untrusted":
		return TrustUntrusted, true
	case "verified":
		return TrustVerified, true
	case "trusted":
		return TrustTrusted, true
	}
	return 0, false
}

// DefaultCapabilities returns the capabilities granted by default at this
// trust level. The result is monotonic: everything granted at a lower level
// is granted at every higher one.
func (t TrustLevel) DefaultCapabilities() map[Capability]bool {
	caps := make(map[Capability]bool)

	// Base capabilities for all scripts.
	caps[CapabilityLogging] = true
	caps[CapabilityMath] = true
	caps[CapabilityTime] = true
	caps[CapabilityInput] = true

	if t >= TrustUntrusted {
		caps[CapabilityEntityRead] = true
		caps[CapabilityPhysicsRaycast] = true
		caps[CapabilityAudioPlay] = true
	}

	if t >= TrustVerified {
		caps[CapabilityEntityWrite] = true
		caps[CapabilityConfigRead] = true
	}

	if t >= TrustTrusted {
		caps[CapabilityConfigWrite] = true
		caps[CapabilityDebug] = true
		caps[CapabilityFileSystem] = true
	}

	return caps
}

// CapabilitySet is the mutable collection of capabilities granted to one
// script context. It is seeded from the trust level's defaults; Grant and
// Revoke are host-only overrides. The trust level itself never changes after
// creation - escalating trust means building a new context.
type CapabilitySet struct {
	mu    sync.RWMutex
	trust TrustLevel
	caps  map[Capability]bool
}

// NewCapabilitySet creates a capability set seeded from the trust level.
func NewCapabilitySet(trust TrustLevel) *CapabilitySet {
	return &CapabilitySet{
		trust: trust,
		caps:  trust.DefaultCapabilities(),
	}
}

// Has reports whether the capability is granted. It is the sole gate
// consulted before any privileged host operation.
func (s *CapabilitySet) Has(c Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps[c]
}

// Grant adds a capability. Idempotent.
func (s *CapabilitySet) Grant(c Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps[c] = true
}

// Revoke removes a capability. Idempotent.
func (s *CapabilitySet) Revoke(c Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caps, c)
}

// TrustLevel returns the trust level the set was created with.
func (s *CapabilitySet) TrustLevel() TrustLevel {
	return s.trust
}

// Capabilities returns the granted capabilities in enum order.
func (s *CapabilitySet) Capabilities() []Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caps := make([]Capability, 0, len(s.caps))
	for c, granted := range s.caps {
		if granted {
			caps = append(caps, c)
		}
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}
