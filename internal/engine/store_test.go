package engine

import (
	"math"
	"testing"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

func TestBookStoreRejectsInvalidAndUntracked(t *testing.T) {
	s := NewBookStore(7, 2)
	s.Track("BTCUSDT", 1)

	now := time.Now()

	if s.Update(domain.BookTicker{Symbol: "ETHUSDT", BidPrice: 1, BidSize: 1, AskPrice: 2, AskSize: 1, Time: now}) {
		t.Error("update for untracked symbol should be rejected")
	}
	if s.Update(domain.BookTicker{Symbol: "BTCUSDT", BidPrice: math.NaN(), BidSize: 1, AskPrice: 2, AskSize: 1, Time: now}) {
		t.Error("update with NaN price should be rejected")
	}
	if s.Update(domain.BookTicker{Symbol: "", BidPrice: 1, BidSize: 1, AskPrice: 2, AskSize: 1, Time: now}) {
		t.Error("update with empty symbol should be rejected")
	}
	if !s.LastArrival("BTCUSDT").IsZero() {
		t.Error("rejected updates must not touch timestamps")
	}
}

func TestBookStoreChangeDetection(t *testing.T) {
	s := NewBookStore(7, 2)
	s.Track("BTCUSDT", 1)

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)
	t2 := t0.Add(2 * time.Second)

	if !s.Update(domain.BookTicker{Symbol: "BTCUSDT", BidPrice: 49999.96, BidSize: 1, AskPrice: 50000.04, AskSize: 1, Time: t0}) {
		t.Fatal("first update rejected")
	}
	if got := s.LastChange("BTCUSDT"); !got.Equal(t0) {
		t.Errorf("first update must set lastChange, got %v", got)
	}

	// Different raw prices that round to the same tick, plus a size change:
	// arrival moves, change does not.
	s.Update(domain.BookTicker{Symbol: "BTCUSDT", BidPrice: 50000.04, BidSize: 5, AskPrice: 49999.96, AskSize: 9, Time: t1})
	if got := s.LastArrival("BTCUSDT"); !got.Equal(t1) {
		t.Errorf("lastArrival = %v, want %v", got, t1)
	}
	if got := s.LastChange("BTCUSDT"); !got.Equal(t0) {
		t.Errorf("lastChange moved on a same-rounded-price update: %v", got)
	}
	b, _ := s.Book("BTCUSDT")
	if b.BidSize != 5 || b.AskSize != 9 {
		t.Errorf("sizes must be overwritten even without a price change, got %+v", b)
	}

	// A real price move (one tick) advances lastChange.
	s.Update(domain.BookTicker{Symbol: "BTCUSDT", BidPrice: 50000.1, BidSize: 5, AskPrice: 50000.2, AskSize: 9, Time: t2})
	if got := s.LastChange("BTCUSDT"); !got.Equal(t2) {
		t.Errorf("lastChange = %v, want %v", got, t2)
	}
}

func TestBookStoreHistoryBounded(t *testing.T) {
	s := NewBookStore(3, 2)
	s.Track("ETHUSDT", 2)

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Update(domain.BookTicker{
			Symbol:   "ETHUSDT",
			BidPrice: 2600 + float64(i),
			BidSize:  1,
			AskPrice: 2601 + float64(i),
			AskSize:  1,
			Time:     t0.Add(time.Duration(i) * time.Second),
		})
	}

	hist := s.History("ETHUSDT")
	if len(hist) != 3 {
		t.Fatalf("history length = %d, want 3", len(hist))
	}
	// Oldest entries evicted: window is updates 2, 3, 4.
	if hist[0].Bid != 2602 || hist[2].Bid != 2604 {
		t.Errorf("window = [%v .. %v], want [2602 .. 2604]", hist[0].Bid, hist[2].Bid)
	}
}

func TestBookStoreDistinctStates(t *testing.T) {
	s := NewBookStore(7, 2)
	s.Track("ETHBTC", 6)

	if s.DistinctStates("ETHBTC") != 0 {
		t.Error("empty history must count zero states")
	}

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	same := domain.BookTicker{Symbol: "ETHBTC", BidPrice: 0.0498, BidSize: 2, AskPrice: 0.05, AskSize: 3}
	for i := 0; i < 4; i++ {
		same.Time = t0.Add(time.Duration(i) * time.Second)
		s.Update(same)
	}
	if got := s.DistinctStates("ETHBTC"); got != 1 {
		t.Errorf("identical snapshots: DistinctStates = %d, want 1", got)
	}
	if s.HasRecentMovement("ETHBTC") {
		t.Error("a book stuck on one state must not count as moving")
	}

	// A size-only flicker is still a distinct state.
	same.AskSize = 4
	same.Time = t0.Add(5 * time.Second)
	s.Update(same)
	if got := s.DistinctStates("ETHBTC"); got != 2 {
		t.Errorf("after size flicker: DistinctStates = %d, want 2", got)
	}
	if !s.HasRecentMovement("ETHBTC") {
		t.Error("two distinct states must count as moving")
	}
}

func TestRoundTo(t *testing.T) {
	cases := []struct {
		v    float64
		dec  int
		want float64
	}{
		{50000.04, 1, 50000.0},
		{2.25, 1, 2.3},
		{0.0500004, 6, 0.05},
		{2600.456, 2, 2600.46},
		{7, 0, 7},
	}
	for _, c := range cases {
		if got := roundTo(c.v, c.dec); got != c.want {
			t.Errorf("roundTo(%v, %d) = %v, want %v", c.v, c.dec, got, c.want)
		}
	}
}
