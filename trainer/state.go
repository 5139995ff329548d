package trainer

// State is the lifecycle position of a training run.
type State int

const (
	StateInitialized State = iota
	StateTokenizing
	StateTraining
	StateEvaluating
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateTokenizing:
		return "tokenizing"
	case StateTraining:
		return "training"
	case StateEvaluating:
		return "evaluating"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON run records.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
