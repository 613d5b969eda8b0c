package script

import (
	"time"

	"github.com/modforge/scripthost/security"
)

// Default ceilings for sandboxed execution.
const (
	// DefaultInstructionLimit is the maximum VM steps per execution.
	DefaultInstructionLimit = 10_000_000

	// DefaultMemoryLimit is the per-run heap growth ceiling.
	DefaultMemoryLimit = 64 * 1024 * 1024 // 64 MB

	// DefaultTimeout bounds one RunScript/Eval call.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxStackDepth bounds the Lua call stack.
	DefaultMaxStackDepth = 256
)

// SandboxConfig is the immutable configuration an engine is created with.
// A zero instruction, memory or timeout value disables that ceiling.
type SandboxConfig struct {
	// TrustLevel seeds the engine's capability set.
	TrustLevel security.TrustLevel

	// InstructionLimit is the maximum VM steps per RunScript/Eval call.
	InstructionLimit uint64

	// Timeout is the wall-clock deadline per RunScript/Eval call.
	Timeout time.Duration

	// MemoryLimit is the per-run heap growth ceiling in bytes.
	MemoryLimit uint64

	// MaxStackDepth is the Lua call stack size.
	MaxStackDepth int
}

// UntrustedConfig returns the conservative default configuration for
// community mods.
func UntrustedConfig() SandboxConfig {
	return SandboxConfig{
		TrustLevel:       security.TrustUntrusted,
		InstructionLimit: DefaultInstructionLimit,
		Timeout:          DefaultTimeout,
		MemoryLimit:      DefaultMemoryLimit,
		MaxStackDepth:    DefaultMaxStackDepth,
	}
}

// VerifiedConfig returns the configuration for verified/signed mods.
func VerifiedConfig() SandboxConfig {
	return SandboxConfig{
		TrustLevel:       security.TrustVerified,
		InstructionLimit: 50_000_000,
		Timeout:          30 * time.Second,
		MemoryLimit:      128 * 1024 * 1024,
		MaxStackDepth:    DefaultMaxStackDepth,
	}
}

// TrustedConfig returns the unrestricted configuration for developer
// scripts. Ceilings are disabled.
func TrustedConfig() SandboxConfig {
	return SandboxConfig{
		TrustLevel:    security.TrustTrusted,
		MaxStackDepth: 512,
	}
}

// withDefaults fills in zero values that must not stay zero.
func (c SandboxConfig) withDefaults() SandboxConfig {
	if c.MaxStackDepth <= 0 {
		c.MaxStackDepth = DefaultMaxStackDepth
	}
	return c
}
