package prefetch

// State is the lifecycle state of a Session.
type State int32

const (
	// StatePriming: the initial window is being submitted.
	StatePriming State = iota
	// StateSteady: each Next submits one key and yields one result.
	StateSteady
	// StateDraining: the key source is exhausted; Next only yields.
	StateDraining
	// StateDone: every result has been yielded.
	StateDone
	// StateClosed: the session was closed by its owner.
	StateClosed
	// StateFailed: a resource or key source failure ended the session.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePriming:
		return "priming"
	case StateSteady:
		return "steady"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further results can be produced.
func (s State) Terminal() bool {
	return s >= StateDone
}
