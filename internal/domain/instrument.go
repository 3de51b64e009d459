// Package domain contains the pure types shared by every layer of the
// arbitrage monitor: instruments, top-of-book quotes, triangular paths,
// opportunity state, and the interfaces implemented by external
// collaborators (signal bus, caches, fee schedule).
package domain

import "strings"

// Instrument describes one tradable spot symbol as reported by the exchange
// instrument list.
type Instrument struct {
	Symbol    string
	BaseCoin  string
	QuoteCoin string
	TickSize  string // decimal string, e.g. "0.0001"
}

// defaultTickSize is assumed when the exchange omits the price filter.
const defaultTickSize = "0.0001"

// TickDecimals returns the number of decimal places implied by the
// instrument's tick size. "0.01" yields 2, "1" yields 0.
func (i Instrument) TickDecimals() int {
	ts := i.TickSize
	if ts == "" {
		ts = defaultTickSize
	}
	if idx := strings.IndexByte(ts, '.'); idx >= 0 {
		return len(ts) - idx - 1
	}
	return 0
}

// Involves reports whether the instrument trades the given coin on either
// side of the pair.
func (i Instrument) Involves(coin string) bool {
	return i.BaseCoin == coin || i.QuoteCoin == coin
}
