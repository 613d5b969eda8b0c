package security

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Breach identifies which resource ceiling a run violated, if any.
type Breach int32

const (
	// BreachNone means no ceiling has been violated.
	BreachNone Breach = iota

	// BreachInstructions means the executed-step ceiling was exceeded.
	BreachInstructions

	// BreachDeadline means the wall-clock deadline passed.
	BreachDeadline

	// BreachMemory means the heap usage ceiling was exceeded.
	BreachMemory
)

// String returns a string representation of the breach.
func (b Breach) String() string {
	switch b {
	case BreachNone:
		return "none"
	case BreachInstructions:
		return "instruction count"
	case BreachDeadline:
		return "deadline"
	case BreachMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Monitor tracks resource usage for one script run and decides when a
// ceiling has been breached. It is written to be cheap on the hot path:
// Step is a single atomic add plus a comparison, and the expensive probes
// (clock, heap) are only invoked by the caller at its own cadence.
//
// A zero limit disables the corresponding ceiling.
type Monitor struct {
	instructionLimit uint64
	memoryLimit      uint64

	deadline time.Time
	baseHeap uint64

	steps    atomic.Uint64
	heapUsed atomic.Uint64
	breach   atomic.Int32
}

// NewMonitor creates a monitor with the given ceilings.
func NewMonitor(instructionLimit, memoryLimit uint64) *Monitor {
	return &Monitor{
		instructionLimit: instructionLimit,
		memoryLimit:      memoryLimit,
	}
}

// Begin resets the monitor for a new run. The heap baseline is captured so
// memory checks measure what the run itself allocated.
func (m *Monitor) Begin(deadline time.Time) {
	m.deadline = deadline
	m.steps.Store(0)
	m.heapUsed.Store(0)
	m.breach.Store(int32(BreachNone))

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.baseHeap = ms.HeapAlloc
}

// Step records n executed steps and returns the breach state. Only the
// instruction ceiling is evaluated here.
func (m *Monitor) Step(n uint64) Breach {
	count := m.steps.Add(n)
	if m.instructionLimit > 0 && count > m.instructionLimit {
		m.trip(BreachInstructions)
	}
	return Breach(m.breach.Load())
}

// CheckDeadline evaluates the wall-clock ceiling.
func (m *Monitor) CheckDeadline(now time.Time) Breach {
	if !m.deadline.IsZero() && now.After(m.deadline) {
		m.trip(BreachDeadline)
	}
	return Breach(m.breach.Load())
}

// CheckMemory probes the heap and evaluates the memory ceiling. The probe
// reads runtime memory stats, so callers should amortize it over many steps.
func (m *Monitor) CheckMemory() Breach {
	if m.memoryLimit == 0 {
		return Breach(m.breach.Load())
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	used := uint64(0)
	if ms.HeapAlloc > m.baseHeap {
		used = ms.HeapAlloc - m.baseHeap
	}
	m.heapUsed.Store(used)

	if used > m.memoryLimit {
		m.trip(BreachMemory)
	}
	return Breach(m.breach.Load())
}

// trip records the first breach; later breaches do not overwrite it.
func (m *Monitor) trip(b Breach) {
	m.breach.CompareAndSwap(int32(BreachNone), int32(b))
}

// Breach returns the recorded breach, if any.
func (m *Monitor) Breach() Breach {
	return Breach(m.breach.Load())
}

// Steps returns the number of steps recorded so far.
func (m *Monitor) Steps() uint64 {
	return m.steps.Load()
}

// HeapUsed returns the heap delta observed by the last memory probe.
func (m *Monitor) HeapUsed() uint64 {
	return m.heapUsed.Load()
}

// MemoryLimit returns the configured memory ceiling.
func (m *Monitor) MemoryLimit() uint64 {
	return m.memoryLimit
}

// RateLimiter throttles side-effectful host operations (file access) with a
// token bucket, independently of the VM step ceilings. The burst size equals
// the per-second rate.
type RateLimiter struct {
	mu         sync.Mutex
	rate       int // tokens added per second; 0 means unlimited
	tokens     int
	burst      int
	refilledAt time.Time
}

// NewRateLimiter returns a limiter allowing ratePerSecond operations per
// second. A non-positive rate disables limiting.
func NewRateLimiter(ratePerSecond int) *RateLimiter {
	if ratePerSecond <= 0 {
		return &RateLimiter{tokens: 1, burst: 1}
	}
	return &RateLimiter{
		rate:       ratePerSecond,
		tokens:     ratePerSecond,
		burst:      ratePerSecond,
		refilledAt: time.Now(),
	}
}

// Allow reports whether one more operation fits under the rate, consuming a
// token when it does.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.rate == 0 {
		return true
	}
	rl.refill(time.Now())
	if rl.tokens <= 0 {
		return false
	}
	rl.tokens--
	return true
}

// refill credits tokens for the time elapsed since the last refill. Caller
// holds rl.mu.
func (rl *RateLimiter) refill(now time.Time) {
	earned := int(now.Sub(rl.refilledAt).Seconds() * float64(rl.rate))
	if earned <= 0 {
		return
	}
	rl.tokens += earned
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.refilledAt = now
}

// Reset restores the limiter to a full bucket.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.burst
	rl.refilledAt = time.Now()
}
