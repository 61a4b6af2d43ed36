package engine

// State is the engine's position in its per-pairing lifecycle.
type State int

const (
	// StateUninitialized means no pairing is active. Initial and post-Close.
	StateUninitialized State = iota

	// StateHydrating means the initial (or reconnect) fetch is in flight.
	StateHydrating

	// StateSynced means the local document matches the last known remote
	// snapshot, or a debounce window is open on top of it.
	StateSynced

	// StateSaving means the debounce timer has fired and an upsert is in
	// flight.
	StateSaving

	// StateDisconnected means the last store interaction failed; the
	// in-memory document remains usable and Reconnect re-hydrates.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateSynced:
		return "synced"
	case StateSaving:
		return "saving"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
