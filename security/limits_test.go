package security

import (
	"testing"
	"time"
)

func TestMonitorInstructionLimit(t *testing.T) {
	m := NewMonitor(1000, 0)
	m.Begin(time.Time{})

	if b := m.Step(500); b != BreachNone {
		t.Fatalf("Step(500) breach = %v, want none", b)
	}
	if b := m.Step(501); b != BreachInstructions {
		t.Fatalf("Step past limit breach = %v, want instructions", b)
	}
	if m.Steps() != 1001 {
		t.Errorf("Steps() = %d, want 1001", m.Steps())
	}
}

func TestMonitorUnlimitedInstructions(t *testing.T) {
	m := NewMonitor(0, 0)
	m.Begin(time.Time{})

	if b := m.Step(1 << 30); b != BreachNone {
		t.Errorf("Step with zero limit breach = %v, want none", b)
	}
}

func TestMonitorDeadline(t *testing.T) {
	m := NewMonitor(0, 0)
	deadline := time.Now().Add(-time.Millisecond)
	m.Begin(deadline)

	if b := m.CheckDeadline(time.Now()); b != BreachDeadline {
		t.Errorf("CheckDeadline past deadline breach = %v, want deadline", b)
	}
}

func TestMonitorZeroDeadline(t *testing.T) {
	m := NewMonitor(0, 0)
	m.Begin(time.Time{})

	if b := m.CheckDeadline(time.Now()); b != BreachNone {
		t.Errorf("CheckDeadline with zero deadline breach = %v, want none", b)
	}
}

func TestMonitorFirstBreachWins(t *testing.T) {
	m := NewMonitor(10, 0)
	m.Begin(time.Now().Add(-time.Second))

	m.Step(100)
	m.CheckDeadline(time.Now())

	if b := m.Breach(); b != BreachInstructions {
		t.Errorf("Breach() = %v, want instructions (first breach)", b)
	}
}

func TestMonitorMemoryProbe(t *testing.T) {
	// A one-byte ceiling trips on the first probe that observes any
	// allocation; a huge ceiling never trips.
	m := NewMonitor(0, 1)
	m.Begin(time.Time{})

	// Allocate enough that the heap delta is visible despite GC noise.
	sink := make([][]byte, 64)
	for i := range sink {
		sink[i] = make([]byte, 64*1024)
	}

	if b := m.CheckMemory(); b != BreachMemory {
		t.Errorf("CheckMemory with 1-byte ceiling breach = %v, want memory", b)
	}
	_ = sink

	m2 := NewMonitor(0, 1<<40)
	m2.Begin(time.Time{})
	if b := m2.CheckMemory(); b != BreachNone {
		t.Errorf("CheckMemory with huge ceiling breach = %v, want none", b)
	}
}

func TestMonitorBeginResets(t *testing.T) {
	m := NewMonitor(10, 0)
	m.Begin(time.Time{})
	m.Step(100)
	if m.Breach() != BreachInstructions {
		t.Fatal("setup: expected instruction breach")
	}

	m.Begin(time.Time{})
	if m.Breach() != BreachNone {
		t.Error("Begin did not clear breach state")
	}
	if m.Steps() != 0 {
		t.Error("Begin did not reset step count")
	}
}

func TestRateLimiterAllowsWithinRate(t *testing.T) {
	rl := NewRateLimiter(10)

	for i := 0; i < 10; i++ {
		if !rl.Allow() {
			t.Fatalf("Allow() = false on call %d within burst", i)
		}
	}
	if rl.Allow() {
		t.Error("Allow() = true after burst exhausted")
	}
}

func TestRateLimiterUnlimited(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !rl.Allow() {
			t.Fatal("unlimited rate limiter denied an operation")
		}
	}
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Allow()
	if rl.Allow() {
		t.Fatal("setup: expected limiter to be exhausted")
	}

	rl.Reset()
	if !rl.Allow() {
		t.Error("Allow() = false after Reset")
	}
}
