package script

import (
	"errors"
	"fmt"

	"github.com/modforge/scripthost/security"
)

// ErrorKind tags the closed set of failure classes a sandboxed run can
// produce. Every fallible operation in this package returns a *Error with
// exactly one of these kinds; the host never sees a raw interpreter error.
type ErrorKind int

const (
	// KindRuntime means the script itself raised a runtime error.
	// Recoverable: the engine stays usable.
	KindRuntime ErrorKind = iota

	// KindResourceLimit means the instruction-count ceiling was exceeded.
	KindResourceLimit

	// KindCapabilityDenied means a bridge call was refused because the
	// context lacks the required capability. The denial surfaced to Go
	// because the script did not catch it.
	KindCapabilityDenied

	// KindTimeout means the wall-clock deadline was exceeded.
	KindTimeout

	// KindMemoryLimit means the memory ceiling was exceeded. The engine
	// should be treated as suspect and rebuilt.
	KindMemoryLimit

	// KindSandboxInit means the isolated interpreter context could not be
	// constructed.
	KindSandboxInit

	// KindCompile means the source failed to parse; nothing executed.
	KindCompile
)

// String returns a string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRuntime:
		return "runtime"
	case KindResourceLimit:
		return "resource-limit"
	case KindCapabilityDenied:
		return "capability-denied"
	case KindTimeout:
		return "timeout"
	case KindMemoryLimit:
		return "memory-limit"
	case KindSandboxInit:
		return "sandbox-init"
	case KindCompile:
		return "compile"
	default:
		return "unknown"
	}
}

// Error is the taxonomy error for every fallible sandbox operation.
type Error struct {
	Kind ErrorKind

	// API is the bridge function name for KindCapabilityDenied.
	API string

	// Capability is the missing capability for KindCapabilityDenied.
	Capability security.Capability

	// Steps is the executed-step count for KindTimeout.
	Steps uint64

	// Used and Limit are the byte counts for KindMemoryLimit.
	Used  uint64
	Limit uint64

	// Resource names the exceeded ceiling for KindResourceLimit.
	Resource string

	// Err is the underlying interpreter or host error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindRuntime:
		return fmt.Sprintf("script error: %v", e.Err)
	case KindResourceLimit:
		return fmt.Sprintf("resource limit exceeded: %s", e.Resource)
	case KindCapabilityDenied:
		return fmt.Sprintf("capability denied: %s (requires %s)", e.API, e.Capability)
	case KindTimeout:
		return fmt.Sprintf("script timeout after %d instructions", e.Steps)
	case KindMemoryLimit:
		return fmt.Sprintf("memory limit exceeded: %d bytes > %d bytes", e.Used, e.Limit)
	case KindSandboxInit:
		return fmt.Sprintf("sandbox init error: %v", e.Err)
	case KindCompile:
		return fmt.Sprintf("compilation error: %v", e.Err)
	default:
		return fmt.Sprintf("script error (kind %d): %v", e.Kind, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

func runtimeError(err error) *Error {
	return &Error{Kind: KindRuntime, Err: err}
}

func compileError(err error) *Error {
	return &Error{Kind: KindCompile, Err: err}
}

func initError(err error) *Error {
	return &Error{Kind: KindSandboxInit, Err: err}
}
