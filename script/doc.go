// Package script executes untrusted Lua inside isolated, resource-limited
// sandboxes. Each Engine owns one interpreter, one capability set seeded from
// a trust level, and hard ceilings on instructions, wall-clock time and heap
// growth. Host functionality is reachable only through the capability-gated
// engine API; everything else that could touch the host is stripped from the
// interpreter before any script runs.
package script
