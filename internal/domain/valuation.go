package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LegQuote records how a single leg contributed to a path valuation: the
// price actually used (bid or reciprocal ask), the fee applied, and the
// currencies converted.
type LegQuote struct {
	From      string
	To        string
	Symbol    string
	Direction LegDirection
	Price     float64 // the raw book price on the crossed side
	Fee       float64
}

// Valuation is the fee-adjusted round-trip value of one path at one instant.
// It is transient: each recompute overwrites the previous one.
type Valuation struct {
	PathID string
	Value  float64 // percent, rounded to 3 decimals
	Legs   [3]LegQuote
	Time   time.Time
}

// Describe renders the leg-by-leg conversion as one line per leg, e.g.
//
//	USDT -> BTCUSDT [ask 43000.5] (fee 0.001) -> BTC
func (v Valuation) Describe() string {
	var b strings.Builder
	for i, lq := range v.Legs {
		if i > 0 {
			b.WriteByte('\n')
		}
		side := "bid"
		if lq.Direction == DirDen {
			side = "ask"
		}
		fmt.Fprintf(&b, "%s -> %s [%s %s] (fee %s) -> %s",
			lq.From, lq.Symbol, side,
			strconv.FormatFloat(lq.Price, 'f', -1, 64),
			strconv.FormatFloat(lq.Fee, 'f', -1, 64),
			lq.To,
		)
	}
	return b.String()
}
