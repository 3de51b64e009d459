package domain

import (
	"math"
	"time"
)

// BookTicker is one inbound top-of-book event as delivered by the market-data
// transport: best bid/ask price and size for a single symbol, stamped with
// the local arrival time.
type BookTicker struct {
	Symbol   string
	BidPrice float64
	BidSize  float64
	AskPrice float64
	AskSize  float64
	Time     time.Time
}

// Valid reports whether every numeric field is a finite number. Events that
// fail this check are dropped with no state change.
func (t BookTicker) Valid() bool {
	for _, v := range []float64{t.BidPrice, t.BidSize, t.AskPrice, t.AskSize} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return t.Symbol != ""
}

// TopOfBook is one stored top-of-book snapshot. Prices are already rounded to
// the symbol's tick precision at storage time.
type TopOfBook struct {
	Bid     float64
	BidSize float64
	Ask     float64
	AskSize float64
	Time    time.Time
}
