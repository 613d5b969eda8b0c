// Package modpack discovers, loads and manages mods: directories containing
// a mod.json manifest and Lua sources. Each mod runs in its own sandboxed
// engine sized by the trust level its manifest declares; extra capability
// requests beyond the trust defaults go through the operator approval list.
package modpack
