package pipeline

import "fmt"

// State is one step of the smoke-test run. The run only moves forward;
// Failed is reachable from every non-terminal state.
type State string

const (
	StateIdle      State = "Idle"
	StatePreflight State = "Preflight"
	StateStage1    State = "Stage1"
	StateLocate    State = "Locate"
	StateNormalize State = "Normalize"
	StateStage2    State = "Stage2"
	StateStage3    State = "Stage3"
	StateDone      State = "Done"
	StateFailed    State = "Failed"
)

// next maps each state to its only forward successor.
var next = map[State]State{
	StateIdle:      StatePreflight,
	StatePreflight: StateStage1,
	StateStage1:    StateLocate,
	StateLocate:    StateNormalize,
	StateNormalize: StateStage2,
	StateStage2:    StateStage3,
	StateStage3:    StateDone,
}

// IsTerminal reports whether the run is over in this state.
func IsTerminal(s State) bool {
	return s == StateDone || s == StateFailed
}

// machine tracks the current state and the visit history of one run.
type machine struct {
	current State
	visited []State
}

func newMachine() *machine {
	return &machine{current: StateIdle, visited: []State{StateIdle}}
}

// advance moves to the given state, rejecting anything but the single
// allowed successor or Failed. An invalid transition is a programming error
// in the driver, not an operator-facing condition.
func (m *machine) advance(to State) error {
	if !allowedTransition(m.current, to) {
		return fmt.Errorf("disallowed pipeline transition: %s -> %s", m.current, to)
	}
	m.current = to
	m.visited = append(m.visited, to)
	return nil
}

func allowedTransition(from, to State) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StateFailed {
		return true
	}
	return next[from] == to
}
