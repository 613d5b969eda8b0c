// Package hostapi exposes the curated, capability-gated surface of host
// operations to sandboxed scripts. It is the only path by which script code
// can affect host state.
//
// Each API area (input, entity, audio, physics, scene, config, fs, log,
// time, math) is a Module that registers a table of functions under the
// shared "engine" namespace. Every function that touches a collaborator is
// wrapped by a per-call capability check: if the calling context's
// CapabilitySet lacks the required capability the call raises a Lua error
// with a stable "capability denied" message before any side effect occurs.
// The error is catchable from Lua with pcall; if the script lets it
// propagate, the engine maps it onto the CapabilityDenied taxonomy kind.
//
// Modules hold no ambient state: each is constructed over a Context that
// carries the capability set and the external collaborator interfaces
// explicitly, so the security check is auditable per function.
package hostapi
