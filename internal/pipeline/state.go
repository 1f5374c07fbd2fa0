package pipeline

import "fmt"

// State is the monotonic stage marker. Each stage method requires the
// pipeline to have reached the predecessor stage and advances the marker on
// success; stages never run out of order and never re-run.
type State int

const (
	StateInitialized State = iota
	StateLoaded
	StatePreprocessed
	StateEngineered
)

// String returns the stage marker name
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateLoaded:
		return "LOADED"
	case StatePreprocessed:
		return "PREPROCESSED"
	case StateEngineered:
		return "ENGINEERED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
