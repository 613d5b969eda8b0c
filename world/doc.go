// Package world provides in-memory implementations of the host interfaces
// the scripting bridge consumes: entities, audio, physics queries, input
// snapshots, scenes and game configuration. A game engine embeds these
// directly or substitutes its own implementations of the same interfaces.
package world
