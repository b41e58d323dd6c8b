package store

// State describes where a store is in its fetch lifecycle.
type State int

const (
	// StateUninitialized means no fetch has been attempted yet.
	StateUninitialized State = iota
	// StateLoading means a read-all query is in flight.
	StateLoading
	// StateReady means the collection reflects a validated fetch response.
	StateReady
	// StateError means the initial load failed; the collection is whatever
	// the last successful load produced (empty if none succeeded).
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
