package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// evaluate runs the opportunity lifecycle state machine for one path after a
// successful recompute. Checks run in order (freeze, liquidity, threshold)
// and each short-circuits the rest when it fires.
func (e *Engine) evaluate(p *domain.Path, val domain.Valuation, now time.Time) {
	st := e.stateFor(p)

	// Freeze check: while active, close when the watched (non-base) legs have
	// stopped moving, by wall-clock timeout or by history diversity. A path
	// with no non-base legs is never considered frozen.
	if st.Active && e.cfg.RequireMovementToKeep {
		frozen := e.frozenLegs(p, now)
		shouldClose := len(frozen) > 0
		if e.cfg.FreezeRequireAllLegs {
			shouldClose = len(p.Observed) > 0 && len(frozen) == len(p.Observed)
		}
		if shouldClose {
			e.close(st, val, now, domain.ReasonNoChange+":"+strings.Join(frozen, ","))
			return
		}
	}

	// Liquidity check: every leg must have size on the side it would consume.
	if zeros := e.zeroSizeLegs(p); len(zeros) > 0 {
		if st.Active {
			e.close(st, val, now, domain.ReasonZeroQty+":"+strings.Join(zeros, ","))
		} else {
			st.PosTicks = 0
			st.NegTicks++
		}
		st.LastValue = val.Value
		return
	}

	// Threshold/hysteresis.
	switch {
	case val.Value > e.cfg.ProfitThreshold:
		st.PosTicks++
		st.NegTicks = 0
		if !st.Active && st.PosTicks >= e.cfg.MinTicks {
			e.tryActivate(p, st, val, now)
		}
	case val.Value < e.cfg.ProfitThreshold:
		st.NegTicks++
		st.PosTicks = 0
		if st.Active && st.NegTicks >= e.cfg.MinTicks {
			e.close(st, val, now, "")
		}
	default:
		// Exactly at threshold: neither streak survives.
		st.PosTicks = 0
		st.NegTicks = 0
	}

	st.LastValue = val.Value
}

// stateFor returns the path's opportunity state, creating it on first touch.
// States are never deleted.
func (e *Engine) stateFor(p *domain.Path) *domain.OpportunityState {
	id := p.ID()
	st, ok := e.states[id]
	if !ok {
		st = &domain.OpportunityState{}
		e.states[id] = st
	}
	return st
}

// frozenLegs returns the observed legs that look frozen at time now: no price
// change for at least the freeze timeout, or not enough distinct history
// states to count as moving.
func (e *Engine) frozenLegs(p *domain.Path, now time.Time) []string {
	var frozen []string
	for _, sym := range p.Observed {
		if now.Sub(e.store.LastChange(sym)) >= e.cfg.FreezeTimeout || !e.store.HasRecentMovement(sym) {
			frozen = append(frozen, sym)
		}
	}
	return frozen
}

// zeroSizeLegs returns the legs whose consumed book side (bid for "num",
// ask for "den") currently has no size.
func (e *Engine) zeroSizeLegs(p *domain.Path) []string {
	var zeros []string
	for _, leg := range p.Legs {
		b, ok := e.store.Book(leg.Symbol)
		size := b.BidSize
		if leg.Direction == domain.DirDen {
			size = b.AskSize
		}
		if !ok || size <= 0 {
			zeros = append(zeros, leg.Symbol)
		}
	}
	return zeros
}

// tryActivate attempts the INACTIVE -> ACTIVE transition once the positive
// streak is long enough. When movement-to-start is required and any observed
// leg is flat, activation is deferred: the streak is retained so the path can
// activate as soon as movement resumes, but notification stays suppressed.
func (e *Engine) tryActivate(p *domain.Path, st *domain.OpportunityState, val domain.Valuation, now time.Time) {
	if e.cfg.RequireMovementToStart {
		for _, sym := range p.Observed {
			if !e.store.HasRecentMovement(sym) {
				st.StartNotified = false
				return
			}
		}
	}

	st.Active = true
	e.activeCount++
	st.ActivatedAt = now
	st.EndNotifiedAt = time.Time{}
	st.StartNotified = true
	st.WatchedSymbols = append([]string(nil), p.Observed...)
	st.ChangeBaseline = make(map[string]time.Time, len(p.Legs))
	for _, leg := range p.Legs {
		st.ChangeBaseline[leg.Symbol] = e.store.LastChange(leg.Symbol)
	}

	e.emit(domain.FlowEvent{
		ID:          uuid.NewString(),
		Kind:        domain.FlowStart,
		PathID:      val.PathID,
		Value:       val.Value,
		Description: val.Describe(),
		Time:        now,
	})
}

// close performs the ACTIVE -> INACTIVE transition. The end event is emitted
// at most once per activation, no matter how many ticks re-trigger the close
// condition afterwards.
func (e *Engine) close(st *domain.OpportunityState, val domain.Valuation, now time.Time, reason string) {
	st.Active = false
	e.activeCount--

	if st.EndNotifiedAt.IsZero() {
		e.emit(domain.FlowEvent{
			ID:          uuid.NewString(),
			Kind:        domain.FlowEnd,
			PathID:      val.PathID,
			Value:       val.Value,
			Description: val.Describe(),
			Duration:    now.Sub(st.ActivatedAt),
			Reason:      reason,
			Time:        now,
		})
		st.EndNotifiedAt = now
	}

	st.PosTicks = 0
	st.NegTicks = 0
	st.StartNotified = false
}
