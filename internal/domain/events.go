package domain

import "time"

// FlowEventKind distinguishes opportunity start and end events.
type FlowEventKind string

const (
	FlowStart FlowEventKind = "start"
	FlowEnd   FlowEventKind = "end"
)

// Close-reason prefixes carried on end events. The full reason appends the
// offending symbols, e.g. "nochange:ETHBTC" or "qty0:XRPBTC,ETHBTC".
const (
	ReasonNoChange = "nochange"
	ReasonZeroQty  = "qty0"
)

// FlowEvent is emitted by the engine when a path transitions between
// INACTIVE and ACTIVE. End events carry the activation duration and, for
// freeze or liquidity closes, a reason string.
type FlowEvent struct {
	ID          string        `json:"id"` // UUID
	Kind        FlowEventKind `json:"kind"`
	PathID      string        `json:"path_id"`
	Value       float64       `json:"value"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Time        time.Time     `json:"time"`
}
