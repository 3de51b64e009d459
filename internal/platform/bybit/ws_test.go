package bybit

import (
	"reflect"
	"testing"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

func collectTickers(w *WSClient) *[]domain.BookTicker {
	var got []domain.BookTicker
	w.OnBookTicker(func(t domain.BookTicker) { got = append(got, t) })
	return &got
}

func TestHandleMessageSnapshot(t *testing.T) {
	w := NewWSClient("wss://example.invalid")
	got := collectTickers(w)

	w.handleMessage([]byte(`{
		"topic": "orderbook.1.BTCUSDT",
		"type": "snapshot",
		"ts": 1714000000000,
		"data": {"s": "BTCUSDT", "b": [["43000.5", "1.2"]], "a": [["43001.0", "0.8"]]}
	}`))

	if len(*got) != 1 {
		t.Fatalf("tickers = %d, want 1", len(*got))
	}
	tk := (*got)[0]
	if tk.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s, want BTCUSDT", tk.Symbol)
	}
	if tk.BidPrice != 43000.5 || tk.BidSize != 1.2 || tk.AskPrice != 43001.0 || tk.AskSize != 0.8 {
		t.Errorf("unexpected ticker %+v", tk)
	}
	if tk.Time.IsZero() {
		t.Error("ticker must be stamped with the local arrival time")
	}
}

func TestHandleMessageDeltaMergesSides(t *testing.T) {
	w := NewWSClient("wss://example.invalid")
	got := collectTickers(w)

	w.handleMessage([]byte(`{
		"topic": "orderbook.1.ETHBTC", "type": "snapshot",
		"data": {"s": "ETHBTC", "b": [["0.0498", "3"]], "a": [["0.05", "2"]]}
	}`))
	// A bid-only delta keeps the last known ask.
	w.handleMessage([]byte(`{
		"topic": "orderbook.1.ETHBTC", "type": "delta",
		"data": {"s": "ETHBTC", "b": [["0.0499", "1"]], "a": []}
	}`))

	if len(*got) != 2 {
		t.Fatalf("tickers = %d, want 2", len(*got))
	}
	tk := (*got)[1]
	if tk.BidPrice != 0.0499 || tk.BidSize != 1 {
		t.Errorf("bid not updated: %+v", tk)
	}
	if tk.AskPrice != 0.05 || tk.AskSize != 2 {
		t.Errorf("ask must carry over from the snapshot: %+v", tk)
	}
}

func TestHandleMessageWaitsForBothSides(t *testing.T) {
	w := NewWSClient("wss://example.invalid")
	got := collectTickers(w)

	// Only one side seen so far: nothing to emit yet.
	w.handleMessage([]byte(`{
		"topic": "orderbook.1.XRPUSDT", "type": "delta",
		"data": {"s": "XRPUSDT", "b": [["0.62", "100"]], "a": []}
	}`))
	if len(*got) != 0 {
		t.Fatalf("tickers = %d, want 0 before both sides are known", len(*got))
	}

	w.handleMessage([]byte(`{
		"topic": "orderbook.1.XRPUSDT", "type": "delta",
		"data": {"s": "XRPUSDT", "b": [], "a": [["0.63", "50"]]}
	}`))
	if len(*got) != 1 {
		t.Fatalf("tickers = %d, want 1 once the ask arrives", len(*got))
	}
}

func TestHandleMessageDropsNoise(t *testing.T) {
	w := NewWSClient("wss://example.invalid")
	got := collectTickers(w)

	frames := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"op": "pong", "success": true}`),
		[]byte(`{"op": "subscribe", "success": true, "ret_msg": ""}`),
		[]byte(`{"topic": "tickers.BTCUSDT", "data": {}}`),
		[]byte(`{"topic": "orderbook.1.BTCUSDT", "data": {"s": "BTCUSDT", "b": [["oops", "1"]], "a": [["43001", "1"]]}}`),
	}
	for _, f := range frames {
		w.handleMessage(f)
	}
	if len(*got) != 0 {
		t.Errorf("noise frames produced %d tickers, want 0", len(*got))
	}
}

func TestHandleMessageSymbolFromTopic(t *testing.T) {
	w := NewWSClient("wss://example.invalid")
	got := collectTickers(w)

	// Some frames omit data.s; the topic suffix is authoritative then.
	w.handleMessage([]byte(`{
		"topic": "orderbook.1.SOLUSDT", "type": "snapshot",
		"data": {"b": [["150.1", "4"]], "a": [["150.2", "6"]]}
	}`))
	if len(*got) != 1 || (*got)[0].Symbol != "SOLUSDT" {
		t.Fatalf("tickers = %v, want one for SOLUSDT", *got)
	}
}

func TestChunkTopics(t *testing.T) {
	topics := []string{"a", "b", "c", "d", "e"}
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if got := chunkTopics(topics, 2); !reflect.DeepEqual(got, want) {
		t.Errorf("chunkTopics = %v, want %v", got, want)
	}
	if got := chunkTopics(nil, 10); got != nil {
		t.Errorf("chunkTopics(nil) = %v, want nil", got)
	}
}
