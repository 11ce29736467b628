package shutdownguard

import (
	"fmt"
	"sync/atomic"
)

// State is the process-wide shutdown monitoring state.
type State int32

const (
	// StateIdle means no monitor has been armed yet.
	StateIdle State = iota
	// StateArmed means a monitor is waiting for an OS termination notification.
	StateArmed
	// StateFired means a termination notification was received and callbacks were (or are being) executed.
	StateFired
	// StateTerminated means the callbacks have finished and the process is being terminated.
	StateTerminated
)

// String returns string representation of the State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// fireOnce is set exactly once; only the first tryFire call wins.
type fireOnce struct {
	fired atomic.Bool
}

func (f *fireOnce) tryFire() bool {
	return f.fired.CompareAndSwap(false, true)
}

func (f *fireOnce) isFired() bool {
	return f.fired.Load()
}

// lifecycle tracks the single-fire guard and the State of an armed monitor.
type lifecycle struct {
	fired fireOnce
	state atomic.Int32
}

func (l *lifecycle) armed() {
	l.state.CompareAndSwap(int32(StateIdle), int32(StateArmed))
}

// tryFire reports whether the caller won the right to execute the callbacks.
func (l *lifecycle) tryFire() bool {
	if !l.fired.tryFire() {
		return false
	}
	l.state.Store(int32(StateFired))
	return true
}

func (l *lifecycle) terminated() {
	l.state.Store(int32(StateTerminated))
}

func (l *lifecycle) current() State {
	return State(l.state.Load())
}

// process is the single process-wide monitoring slot.
// owner is written once by a successful Guard.Start and never re-assigned afterwards.
var process struct {
	owner atomic.Pointer[Guard]
	lc    lifecycle
}
