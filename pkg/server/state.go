package server

import "sync/atomic"

// State describes where the server is in its lifecycle.
//
// Transitions are strictly forward: Starting → Running → Draining → Stopped.
// A request-serving server is Running; once a shutdown begins it is Draining
// until the teardown finishes.
type State int32

const (
	// StateStarting covers process preflight and listener binding.
	StateStarting State = iota

	// StateRunning means all processes are up and the listeners accept work.
	StateRunning

	// StateDraining means new requests are refused while in-flight ones finish.
	StateDraining

	// StateStopped is terminal: listeners closed, processes stopped.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// lifecycle holds the server state with atomic, forward-only transitions.
type lifecycle struct {
	v atomic.Int32
}

// Current returns the current state.
func (l *lifecycle) Current() State {
	return State(l.v.Load())
}

// Advance moves the state forward to target. Returns false when the current
// state is already at or past target, so transitions never go backwards and
// concurrent shutdown paths cannot fight over the state.
func (l *lifecycle) Advance(target State) bool {
	for {
		cur := l.v.Load()
		if cur >= int32(target) {
			return false
		}
		if l.v.CompareAndSwap(cur, int32(target)) {
			return true
		}
	}
}
