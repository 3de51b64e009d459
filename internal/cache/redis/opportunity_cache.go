package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

const (
	// activeKey holds the latest active-opportunity snapshot.
	activeKey = "arb:active"

	// activeTTL expires the snapshot if the engine stops refreshing it, so
	// the HTTP API never serves a stale active set as current.
	activeTTL = 10 * time.Second
)

// OpportunityCache implements domain.OpportunityCache on a single Redis key
// with a short TTL.
type OpportunityCache struct {
	rdb *redis.Client
}

// NewOpportunityCache creates an OpportunityCache backed by the given Client.
func NewOpportunityCache(c *Client) *OpportunityCache {
	return &OpportunityCache{rdb: c.rdb}
}

// SetActive stores the snapshot, refreshing the TTL.
func (oc *OpportunityCache) SetActive(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := oc.rdb.Set(ctx, activeKey, data, activeTTL).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", activeKey, err)
	}
	return nil
}

// GetActive returns the latest snapshot. An absent or expired key yields an
// empty snapshot, not an error.
func (oc *OpportunityCache) GetActive(ctx context.Context) (domain.Snapshot, error) {
	data, err := oc.rdb.Get(ctx, activeKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, nil
		}
		return domain.Snapshot{}, fmt.Errorf("redis: get %s: %w", activeKey, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.OpportunityCache = (*OpportunityCache)(nil)
