package check

// State is a phase of a single orchestrated call.
type State int

const (
	StateResolvingTopology State = iota
	StateDispatching
	StateMerging
	StateDone
)

func (s State) String() string {
	switch s {
	case StateResolvingTopology:
		return "RESOLVING_TOPOLOGY"
	case StateDispatching:
		return "DISPATCHING"
	case StateMerging:
		return "MERGING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
