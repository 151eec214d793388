package dashboard

import "fmt"

// State is the lifecycle position of a dashboard run.
type State int

// Run states. A run moves Idle -> Connected -> Rendering -> Closed, or to
// Failed from any non-terminal state.
const (
	StateIdle State = iota
	StateConnected
	StateRendering
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateRendering:
		return "rendering"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:      {StateConnected, StateFailed},
	StateConnected: {StateRendering, StateClosed, StateFailed},
	StateRendering: {StateRendering, StateConnected, StateClosed, StateFailed},
}

// canTransition reports whether from -> to is allowed.
func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
