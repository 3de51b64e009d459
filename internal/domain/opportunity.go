package domain

import "time"

// OpportunityState is the per-path hysteresis state. One instance is created
// lazily per path and lives for the rest of the process.
//
// Invariant: incrementing PosTicks zeroes NegTicks and vice versa; both are
// zero simultaneously only after a reset or an exactly-at-threshold tick.
type OpportunityState struct {
	Active bool

	PosTicks int
	NegTicks int

	ActivatedAt time.Time
	LastValue   float64

	StartNotified bool
	// EndNotifiedAt is zero while no end event has been emitted for the
	// current (or most recent) activation. It guarantees at most one end
	// event per activation.
	EndNotifiedAt time.Time

	// WatchedSymbols and ChangeBaseline are captured at activation:
	// the non-base leg symbols under freeze watch and each leg's
	// last-change timestamp at that moment.
	WatchedSymbols []string
	ChangeBaseline map[string]time.Time
}

// ActivePath is one entry of the periodic active-opportunity snapshot.
type ActivePath struct {
	PathID      string    `json:"path_id"`
	Value       float64   `json:"value"`
	Description string    `json:"description"`
	Since       time.Time `json:"since"`
}

// Snapshot is the ordered set of currently active paths, best value first.
type Snapshot struct {
	Active []ActivePath `json:"active"`
	Raw    bool         `json:"raw,omitempty"` // true when filters are disabled
	Time   time.Time    `json:"time"`
}
