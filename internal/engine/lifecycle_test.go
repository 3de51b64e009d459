package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// activateForward drives the forward path through a full activation and
// returns the engine together with the activation time. Emitted events are
// drained.
func activateForward(t *testing.T, cfg Config) (*Engine, time.Time) {
	t.Helper()
	e := newTestEngine(t, cfg)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	seedBooks(e, t0) // positive tick 1
	tick(e, "ETHBTC", 0.0498, 1, 0.050001, 1, t0.Add(3*time.Second)) // tick 2
	actAt := t0.Add(4 * time.Second)
	tick(e, "ETHBTC", 0.0498, 1, 0.05, 1, actAt) // tick 3, activates

	st := e.states[pathFwd]
	if st == nil || !st.Active {
		t.Fatal("setup: forward path did not activate")
	}
	drainEvents(e)
	return e, actAt
}

func TestActivationAfterPositiveStreak(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	seedBooks(e, t0)
	tick(e, "ETHBTC", 0.0498, 1, 0.050001, 1, t0.Add(3*time.Second))
	if evs := drainEvents(e); len(evs) != 0 {
		t.Fatalf("no event expected before the streak completes, got %d", len(evs))
	}

	actAt := t0.Add(4 * time.Second)
	tick(e, "ETHBTC", 0.0498, 1, 0.05, 1, actAt)

	evs := drainEvents(e)
	if len(evs) != 1 {
		t.Fatalf("events = %d, want exactly 1 start", len(evs))
	}
	ev := evs[0]
	if ev.Kind != domain.FlowStart {
		t.Errorf("kind = %s, want start", ev.Kind)
	}
	if ev.PathID != pathFwd {
		t.Errorf("path = %s, want %s", ev.PathID, pathFwd)
	}
	if ev.Value != 3.688 {
		t.Errorf("value = %v, want 3.688", ev.Value)
	}
	if ev.ID == "" {
		t.Error("event must carry an id")
	}
	if !ev.Time.Equal(actAt) {
		t.Errorf("event time = %v, want %v", ev.Time, actAt)
	}

	st := e.states[pathFwd]
	if !st.Active || !st.StartNotified {
		t.Errorf("state after activation = %+v", st)
	}
	if !st.ActivatedAt.Equal(actAt) {
		t.Errorf("ActivatedAt = %v, want %v", st.ActivatedAt, actAt)
	}
	if !st.EndNotifiedAt.IsZero() {
		t.Error("EndNotifiedAt must be cleared on activation")
	}
	if !reflect.DeepEqual(st.WatchedSymbols, []string{"ETHBTC"}) {
		t.Errorf("watched symbols = %v, want [ETHBTC]", st.WatchedSymbols)
	}
	if len(st.ChangeBaseline) != 3 {
		t.Errorf("change baseline legs = %d, want 3", len(st.ChangeBaseline))
	}
	if e.activeCount != 1 {
		t.Errorf("activeCount = %d, want 1", e.activeCount)
	}
	if e.broadcast == nil {
		t.Error("broadcast ticker must start with the first active path")
	}
}

func TestMovementGateDefersActivation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tick(e, "BTCUSDT", 49990, 1, 50000, 1, t0)
	tick(e, "ETHUSDT", 2600, 1, 2601, 1, t0.Add(time.Second))
	// Three identical ETHBTC books: profitable, but a one-state history.
	for i := 2; i <= 4; i++ {
		tick(e, "ETHBTC", 0.0498, 1, 0.05, 1, t0.Add(time.Duration(i)*time.Second))
	}

	st := e.states[pathFwd]
	if st.Active {
		t.Fatal("path must not activate while the watched leg shows no movement")
	}
	if st.PosTicks != 3 {
		t.Errorf("PosTicks = %d, want 3 (streak retained across the deferral)", st.PosTicks)
	}
	if st.StartNotified {
		t.Error("StartNotified must stay false while deferred")
	}
	if evs := drainEvents(e); len(evs) != 0 {
		t.Fatalf("no event expected while deferred, got %d", len(evs))
	}

	// Movement resumes: the retained streak activates immediately.
	tick(e, "ETHBTC", 0.0498, 1, 0.049999, 1, t0.Add(5*time.Second))
	evs := drainEvents(e)
	if len(evs) != 1 || evs[0].Kind != domain.FlowStart {
		t.Fatalf("events after movement = %v, want one start", evs)
	}
	if !st.Active {
		t.Error("path must activate once movement resumes")
	}
}

func TestDeactivationAfterNegativeStreak(t *testing.T) {
	e, actAt := activateForward(t, DefaultConfig())

	// Collapse the closing leg below threshold for three consecutive ticks.
	tick(e, "ETHUSDT", 2400, 1, 2401, 1, actAt.Add(time.Second))
	tick(e, "ETHUSDT", 2400.5, 1, 2401.5, 1, actAt.Add(2*time.Second))
	if evs := drainEvents(e); len(evs) != 0 {
		t.Fatalf("no event expected before the streak completes, got %d", len(evs))
	}
	endAt := actAt.Add(3 * time.Second)
	tick(e, "ETHUSDT", 2401, 1, 2402, 1, endAt)

	evs := drainEvents(e)
	if len(evs) != 1 {
		t.Fatalf("events = %d, want exactly 1 end", len(evs))
	}
	ev := evs[0]
	if ev.Kind != domain.FlowEnd {
		t.Errorf("kind = %s, want end", ev.Kind)
	}
	if ev.Reason != "" {
		t.Errorf("reason = %q, want empty for a plain threshold close", ev.Reason)
	}
	if ev.Duration != 3*time.Second {
		t.Errorf("duration = %v, want 3s", ev.Duration)
	}
	if ev.Value >= 0 {
		t.Errorf("close value = %v, want negative", ev.Value)
	}

	st := e.states[pathFwd]
	if st.Active {
		t.Error("path must be inactive after the close")
	}
	if !st.EndNotifiedAt.Equal(endAt) {
		t.Errorf("EndNotifiedAt = %v, want %v", st.EndNotifiedAt, endAt)
	}
	if e.activeCount != 0 {
		t.Errorf("activeCount = %d, want 0", e.activeCount)
	}
	if e.broadcast != nil {
		t.Error("broadcast ticker must stop when the last path closes")
	}

	// Further below-threshold ticks must not produce a second end event.
	tick(e, "ETHUSDT", 2400, 1, 2401, 1, actAt.Add(4*time.Second))
	if evs := drainEvents(e); len(evs) != 0 {
		t.Errorf("duplicate end events: %v", evs)
	}
}

func TestZeroSizeClosesActivePath(t *testing.T) {
	e, actAt := activateForward(t, DefaultConfig())

	// The forward path consumes the ETHBTC ask; zero ask size closes it at
	// once, no streak required.
	tick(e, "ETHBTC", 0.0498, 1, 0.05, 0, actAt.Add(time.Second))

	evs := drainEvents(e)
	if len(evs) != 1 || evs[0].Kind != domain.FlowEnd {
		t.Fatalf("events = %v, want one end", evs)
	}
	if evs[0].Reason != "qty0:ETHBTC" {
		t.Errorf("reason = %q, want qty0:ETHBTC", evs[0].Reason)
	}
	if e.states[pathFwd].Active {
		t.Error("path must be inactive after a liquidity close")
	}
}

func TestZeroSizeWhileInactiveCountsNegative(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tick(e, "BTCUSDT", 49990, 1, 50000, 1, t0)
	tick(e, "ETHUSDT", 2600, 1, 2601, 1, t0.Add(time.Second))
	tick(e, "ETHBTC", 0.0498, 1, 0.05, 0, t0.Add(2*time.Second))

	st := e.states[pathFwd]
	if st.NegTicks != 1 || st.PosTicks != 0 {
		t.Errorf("counters = pos %d neg %d, want pos 0 neg 1", st.PosTicks, st.NegTicks)
	}
	if evs := drainEvents(e); len(evs) != 0 {
		t.Errorf("no event expected for an inactive liquidity miss, got %v", evs)
	}
}

func TestFreezeClosesStalePath(t *testing.T) {
	e, actAt := activateForward(t, DefaultConfig())
	before := e.states[pathFwd].LastValue

	// A tick on another leg past the freeze timeout exposes the stale
	// watched leg.
	tick(e, "BTCUSDT", 49991, 1, 50010, 1, actAt.Add(31*time.Second))

	evs := drainEvents(e)
	if len(evs) != 1 || evs[0].Kind != domain.FlowEnd {
		t.Fatalf("events = %v, want one end", evs)
	}
	if evs[0].Reason != "nochange:ETHBTC" {
		t.Errorf("reason = %q, want nochange:ETHBTC", evs[0].Reason)
	}

	st := e.states[pathFwd]
	if st.Active {
		t.Error("path must be inactive after a freeze close")
	}
	if st.LastValue != before {
		t.Errorf("LastValue = %v, want %v (a freeze close must not record the closing valuation)", st.LastValue, before)
	}
}

func TestFreezeRequireAllLegs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FreezeRequireAllLegs = true
	e := newTestEngine(t, cfg)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedBooks(e, t0)

	p := *pathByID(t, e, pathFwd)
	p.Observed = []string{"ETHBTC", "BTCUSDT"}
	st := e.stateFor(&p)
	st.Active = true
	e.activeCount++

	// Keep one watched leg fresh: no close while any leg still moves. The
	// store is updated directly so the catalog's own path is not evaluated.
	e.store.Update(domain.BookTicker{
		Symbol: "BTCUSDT", BidPrice: 49991, BidSize: 1, AskPrice: 50001, AskSize: 1,
		Time: t0.Add(35 * time.Second),
	})
	val := domain.Valuation{PathID: p.ID(), Value: 3.0}
	e.evaluate(&p, val, t0.Add(36*time.Second))
	if !st.Active {
		t.Fatal("path closed although one watched leg is fresh")
	}
	if evs := drainEvents(e); len(evs) != 0 {
		t.Fatalf("unexpected events %v", evs)
	}

	// Once every watched leg is stale the close fires, naming all of them.
	e.evaluate(&p, val, t0.Add(70*time.Second))
	evs := drainEvents(e)
	if len(evs) != 1 || evs[0].Reason != "nochange:ETHBTC,BTCUSDT" {
		t.Fatalf("events = %v, want one end with reason nochange:ETHBTC,BTCUSDT", evs)
	}
}

func TestEmptyObservedNeverFreezes(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedBooks(e, t0)

	p := *pathByID(t, e, pathFwd)
	p.Observed = nil
	st := e.stateFor(&p)
	st.Active = true
	e.activeCount++

	// Far past any timeout: without watched legs there is nothing to freeze.
	e.evaluate(&p, domain.Valuation{PathID: p.ID(), Value: 3.0}, t0.Add(10*time.Minute))
	if !st.Active {
		t.Error("path with no watched legs must never be closed by the freeze check")
	}
	if evs := drainEvents(e); len(evs) != 0 {
		t.Errorf("unexpected events %v", evs)
	}
}

func TestThresholdEqualityResetsBothStreaks(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg)
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seedBooks(e, t0)

	p := pathByID(t, e, pathFwd)
	st := e.stateFor(p)
	st.PosTicks = 2

	e.evaluate(p, domain.Valuation{PathID: pathFwd, Value: cfg.ProfitThreshold}, t0.Add(3*time.Second))
	if st.PosTicks != 0 || st.NegTicks != 0 {
		t.Errorf("counters = pos %d neg %d, want both zero at exact threshold", st.PosTicks, st.NegTicks)
	}
}

func TestReactivationEmitsFreshEvents(t *testing.T) {
	e, actAt := activateForward(t, DefaultConfig())

	// Close via the threshold streak.
	for i := 1; i <= 3; i++ {
		tick(e, "ETHUSDT", 2400+float64(i), 1, 2401+float64(i), 1, actAt.Add(time.Duration(i)*time.Second))
	}
	if evs := drainEvents(e); len(evs) != 1 || evs[0].Kind != domain.FlowEnd {
		t.Fatalf("setup close: events = %v", evs)
	}

	// Recover: a fresh positive streak reactivates and re-arms the end event.
	for i := 4; i <= 6; i++ {
		tick(e, "ETHUSDT", 2600, 1, 2601, 1, actAt.Add(time.Duration(i)*time.Second))
	}
	evs := drainEvents(e)
	if len(evs) != 1 || evs[0].Kind != domain.FlowStart {
		t.Fatalf("reactivation events = %v, want one start", evs)
	}
	st := e.states[pathFwd]
	if !st.EndNotifiedAt.IsZero() {
		t.Error("EndNotifiedAt must be re-armed on reactivation")
	}

	tick(e, "ETHBTC", 0.0498, 1, 0.05, 0, actAt.Add(7*time.Second))
	evs = drainEvents(e)
	if len(evs) != 1 || evs[0].Kind != domain.FlowEnd {
		t.Fatalf("second close events = %v, want one end", evs)
	}
}
