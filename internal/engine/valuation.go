package engine

import (
	"math"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// recompute calculates the fee-adjusted round-trip value of a path from the
// store's current state. It returns false when any leg lacks a nonzero bid or
// ask (stale or warm-up data, not an error), in which case the path's
// previous valuation stands.
//
// For each leg in order, the running product is multiplied by the leg's bid
// price ("num") or by the reciprocal of its ask ("den"), the side of the
// book actually crossed when converting in that direction, and then by
// (1 - fee). The final value is round((product - 1) * 100, 3).
func (e *Engine) recompute(p *domain.Path, now time.Time) (domain.Valuation, bool) {
	var books [3]domain.TopOfBook
	for i, leg := range p.Legs {
		b, ok := e.store.Book(leg.Symbol)
		if !ok || b.Bid == 0 || b.Ask == 0 {
			return domain.Valuation{}, false
		}
		books[i] = b
	}

	val := domain.Valuation{PathID: p.ID(), Time: now}
	product := 1.0
	for i, leg := range p.Legs {
		fee := e.feeFor(leg.Symbol)
		var price float64
		if leg.Direction == domain.DirNum {
			price = books[i].Bid
			product *= price
		} else {
			price = books[i].Ask
			product *= 1 / price
		}
		product *= 1 - fee
		val.Legs[i] = domain.LegQuote{
			From:      leg.From,
			To:        leg.To,
			Symbol:    leg.Symbol,
			Direction: leg.Direction,
			Price:     price,
			Fee:       fee,
		}
	}

	val.Value = round3((product - 1) * 100)
	return val, true
}

// feeFor resolves the fee rate for one symbol under the configured mode,
// falling back to the default rate when the schedule has no entry.
func (e *Engine) feeFor(symbol string) float64 {
	if e.fees != nil {
		if r, ok := e.fees.Rate(symbol); ok {
			return r.ByMode(e.cfg.FeeMode)
		}
	}
	return e.cfg.DefaultFeeRate
}

// round3 rounds to three decimals, half away from zero.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
