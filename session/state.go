package session

// State is the lifecycle position of a Manager. Transitions only move
// forward, except a failed launch which returns to Unlaunched.
type State int

const (
	Unlaunched State = iota
	Launching
	Launched
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Unlaunched:
		return "unlaunched"
	case Launching:
		return "launching"
	case Launched:
		return "launched"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}
