package domain

import "context"

// SignalBus provides pub/sub fan-out of engine output (flow events and
// active snapshots) to presentation collaborators.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// OpportunityCache stores the latest active-opportunity snapshot so the HTTP
// API can serve it without touching engine state.
type OpportunityCache interface {
	SetActive(ctx context.Context, snap Snapshot) error
	GetActive(ctx context.Context) (Snapshot, error)
}
