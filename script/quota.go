package script

import (
	"context"
	"errors"
	"time"

	"github.com/modforge/scripthost/security"
)

// Quota breach sentinels, surfaced through context.Context.Err.
var (
	errInstructionQuota = errors.New("instruction limit exceeded")
	errDeadlineQuota    = errors.New("execution deadline exceeded")
	errMemoryQuota      = errors.New("memory limit exceeded")
)

// Check cadences. The interpreter polls Done() on every VM step, so the
// per-step cost must stay at an atomic add; the clock is consulted every
// stepCheckInterval steps and the heap every memCheckInterval steps.
const (
	stepCheckInterval = 1 << 10 // 1024 steps
	memCheckInterval  = 1 << 16 // 65536 steps
)

// quotaContext is the resource-limit hook. gopher-lua's VM loop selects on
// ctx.Done() once per instruction cycle when a context is installed, which
// makes Done() a free per-instruction callback: it counts steps exactly and
// amortizes the deadline and heap checks over many steps. The first ceiling
// breached closes the done channel, aborting the interpreter; the monitor
// records which ceiling it was so the engine can map the abort onto the
// error taxonomy without inspecting interpreter messages.
type quotaContext struct {
	parent  context.Context
	monitor *security.Monitor

	open chan struct{} // never closed
	done chan struct{} // closed on the first breach
}

func newQuotaContext(parent context.Context, monitor *security.Monitor) *quotaContext {
	return &quotaContext{
		parent:  parent,
		monitor: monitor,
		open:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Done counts one VM step and returns the abort channel. Must stay cheap:
// it runs once per interpreted instruction.
func (q *quotaContext) Done() <-chan struct{} {
	if q.monitor.Breach() != security.BreachNone {
		return q.done
	}

	breach := q.monitor.Step(1)
	steps := q.monitor.Steps()

	if breach == security.BreachNone && steps%stepCheckInterval == 0 {
		breach = q.monitor.CheckDeadline(time.Now())
		if breach == security.BreachNone && steps%memCheckInterval == 0 {
			breach = q.monitor.CheckMemory()
		}
		if breach == security.BreachNone {
			select {
			case <-q.parent.Done():
				breach = security.BreachDeadline
			default:
			}
		}
	}

	if breach != security.BreachNone {
		q.close()
		return q.done
	}
	return q.open
}

// close is idempotent via the select guard in Done callers being
// single-threaded per engine; a second close would panic, so guard anyway.
func (q *quotaContext) close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

// Err reports which ceiling tripped.
func (q *quotaContext) Err() error {
	switch q.monitor.Breach() {
	case security.BreachInstructions:
		return errInstructionQuota
	case security.BreachDeadline:
		return errDeadlineQuota
	case security.BreachMemory:
		return errMemoryQuota
	}
	return q.parent.Err()
}

// Deadline returns the parent deadline.
func (q *quotaContext) Deadline() (time.Time, bool) {
	return q.parent.Deadline()
}

// Value defers to the parent.
func (q *quotaContext) Value(key any) any {
	return q.parent.Value(key)
}
