// Package engine implements the core of the triangular-arbitrage monitor:
// the bounded top-of-book store with staleness detection, the path catalog,
// the fee-adjusted valuation of conversion cycles, and the opportunity
// lifecycle state machine. All engine state is owned by a single goroutine;
// nothing in this package takes locks.
package engine

import (
	"math"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// symbolState is the live per-symbol record: tick precision, freshness
// timestamps, the latest top-of-book, and the bounded snapshot history.
type symbolState struct {
	tickDec     int
	lastArrival time.Time
	lastChange  time.Time

	// last rounded (bid, ask) pair used for change detection. seen is false
	// until the first accepted update.
	lastBid float64
	lastAsk float64
	seen    bool

	book domain.TopOfBook
	hist []domain.TopOfBook
}

// BookStore holds the latest best bid/ask and size per tracked symbol plus a
// FIFO history of the most recent snapshots, bounded at histLen entries.
type BookStore struct {
	histLen     int
	minDistinct int
	symbols     map[string]*symbolState
}

// NewBookStore creates an empty store. histLen bounds the per-symbol history;
// minDistinct is the number of distinct history states required for a symbol
// to count as "moving".
func NewBookStore(histLen, minDistinct int) *BookStore {
	return &BookStore{
		histLen:     histLen,
		minDistinct: minDistinct,
		symbols:     make(map[string]*symbolState),
	}
}

// Track registers a symbol with its tick precision. Updates for untracked
// symbols are rejected.
func (s *BookStore) Track(symbol string, tickDec int) {
	s.symbols[symbol] = &symbolState{
		tickDec: tickDec,
		hist:    make([]domain.TopOfBook, 0, s.histLen),
	}
}

// Len returns the number of tracked symbols.
func (s *BookStore) Len() int { return len(s.symbols) }

// Update applies one inbound top-of-book event. It returns false, mutating
// nothing, when the event is invalid or the symbol is not tracked.
//
// Accepted updates always refresh the arrival timestamp and overwrite the
// current book (sizes included). The change timestamp moves only when the
// rounded (bid, ask) pair differs from the previous one: change detection is
// on price, not size, and rounding happens before the comparison.
func (s *BookStore) Update(t domain.BookTicker) bool {
	if !t.Valid() {
		return false
	}
	st, ok := s.symbols[t.Symbol]
	if !ok {
		return false
	}

	st.lastArrival = t.Time

	rb := roundTo(t.BidPrice, st.tickDec)
	ra := roundTo(t.AskPrice, st.tickDec)
	if !st.seen || st.lastBid != rb || st.lastAsk != ra {
		st.lastChange = t.Time
		st.lastBid = rb
		st.lastAsk = ra
		st.seen = true
	}

	st.book = domain.TopOfBook{
		Bid:     rb,
		BidSize: t.BidSize,
		Ask:     ra,
		AskSize: t.AskSize,
		Time:    t.Time,
	}

	st.hist = append(st.hist, st.book)
	if len(st.hist) > s.histLen {
		st.hist = st.hist[len(st.hist)-s.histLen:]
	}
	return true
}

// Book returns the current top-of-book for a symbol.
func (s *BookStore) Book(symbol string) (domain.TopOfBook, bool) {
	st, ok := s.symbols[symbol]
	if !ok {
		return domain.TopOfBook{}, false
	}
	return st.book, true
}

// LastArrival returns when the symbol last received any accepted update.
func (s *BookStore) LastArrival(symbol string) time.Time {
	if st, ok := s.symbols[symbol]; ok {
		return st.lastArrival
	}
	return time.Time{}
}

// LastChange returns when the symbol's rounded bid/ask last changed.
func (s *BookStore) LastChange(symbol string) time.Time {
	if st, ok := s.symbols[symbol]; ok {
		return st.lastChange
	}
	return time.Time{}
}

// History returns the symbol's current snapshot window, oldest first. The
// returned slice is the store's own backing array; callers must not hold it
// across updates.
func (s *BookStore) History(symbol string) []domain.TopOfBook {
	if st, ok := s.symbols[symbol]; ok {
		return st.hist
	}
	return nil
}

// bookState is the identity of one history entry for liveness counting.
type bookState struct {
	bid, ask, bidSize, askSize float64
}

// DistinctStates counts the distinct (bid, ask, bidSize, askSize) tuples in
// the symbol's history window. Zero when there is no history.
func (s *BookStore) DistinctStates(symbol string) int {
	st, ok := s.symbols[symbol]
	if !ok || len(st.hist) == 0 {
		return 0
	}
	set := make(map[bookState]struct{}, len(st.hist))
	for _, h := range st.hist {
		set[bookState{h.Bid, h.Ask, h.BidSize, h.AskSize}] = struct{}{}
	}
	return len(set)
}

// HasRecentMovement reports whether the symbol's history window shows enough
// distinct states to count as a live book. This is a liveness proxy, not a
// price-direction signal: a book flickering only in size also moves.
func (s *BookStore) HasRecentMovement(symbol string) bool {
	return s.DistinctStates(symbol) >= s.minDistinct
}

// roundTo rounds v to dec decimal places, half away from zero.
func roundTo(v float64, dec int) float64 {
	f := math.Pow10(dec)
	return math.Round(v*f) / f
}
