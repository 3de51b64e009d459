package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// Config holds the engine tunables. Zero values are replaced by the defaults
// below when the engine is constructed.
type Config struct {
	// BaseCoin anchors every triangular path (start and end currency).
	BaseCoin string

	// ProfitThreshold is the round-trip value, in percent, above which a tick
	// counts toward activation.
	ProfitThreshold float64

	// MinTicks is the consecutive-tick streak required to start or (for
	// below-threshold ticks) normally stop an opportunity.
	MinTicks int

	// HistoryLength bounds the per-symbol top-of-book history window.
	HistoryLength int

	// MinDistinctStates is the number of distinct history states required
	// for a symbol to count as moving.
	MinDistinctStates int

	// FreezeTimeout is how long a watched leg may go without a price change
	// before it is considered frozen.
	FreezeTimeout time.Duration

	// FreezeRequireAllLegs closes a frozen path only when every watched leg
	// is frozen, instead of any single one.
	FreezeRequireAllLegs bool

	RequireMovementToStart bool
	RequireMovementToKeep  bool

	FeeMode        domain.FeeMode
	DefaultFeeRate float64

	// FiltersEnabled runs the lifecycle state machine. When false, every
	// successful recompute is emitted as a raw value-sorted snapshot instead.
	FiltersEnabled bool

	// BroadcastInterval is the cadence of the active-opportunity snapshot
	// while at least one path is active.
	BroadcastInterval time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		BaseCoin:               "USDT",
		ProfitThreshold:        0.05,
		MinTicks:               3,
		HistoryLength:          7,
		MinDistinctStates:      2,
		FreezeTimeout:          30 * time.Second,
		FreezeRequireAllLegs:   false,
		RequireMovementToStart: true,
		RequireMovementToKeep:  true,
		FeeMode:                domain.FeeModeTaker,
		DefaultFeeRate:         0.001,
		FiltersEnabled:         true,
		BroadcastInterval:      250 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseCoin == "" {
		c.BaseCoin = d.BaseCoin
	}
	if c.MinTicks <= 0 {
		c.MinTicks = d.MinTicks
	}
	if c.HistoryLength <= 0 {
		c.HistoryLength = d.HistoryLength
	}
	if c.MinDistinctStates <= 0 {
		c.MinDistinctStates = d.MinDistinctStates
	}
	if c.FreezeTimeout <= 0 {
		c.FreezeTimeout = d.FreezeTimeout
	}
	if c.FeeMode == "" {
		c.FeeMode = d.FeeMode
	}
	if c.BroadcastInterval <= 0 {
		c.BroadcastInterval = d.BroadcastInterval
	}
	return c
}

// Engine is the explicit context object that exclusively owns all core
// state: the top-of-book store, the path catalog, the per-path opportunity
// states, and the latest valuations. A single goroutine (Run) consumes the
// inbound ticker channel and fully processes one event before the next;
// outbound flow events and snapshots leave through buffered typed channels
// and never block processing.
type Engine struct {
	cfg    Config
	fees   domain.FeeSource
	logger *slog.Logger

	store       *BookStore
	catalog     *Catalog
	states      map[string]*domain.OpportunityState
	lastVal     map[string]domain.Valuation
	activeCount int

	tickers   chan domain.BookTicker
	events    chan domain.FlowEvent
	snapshots chan domain.Snapshot

	broadcast  *time.Ticker
	broadcastC <-chan time.Time
}

// New creates an Engine. The fee source may be nil, in which case the default
// fee rate applies to every leg.
func New(cfg Config, fees domain.FeeSource, logger *slog.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:       cfg,
		fees:      fees,
		logger:    logger.With(slog.String("component", "engine")),
		store:     NewBookStore(cfg.HistoryLength, cfg.MinDistinctStates),
		states:    make(map[string]*domain.OpportunityState),
		lastVal:   make(map[string]domain.Valuation),
		tickers:   make(chan domain.BookTicker, 1024),
		events:    make(chan domain.FlowEvent, 64),
		snapshots: make(chan domain.Snapshot, 16),
	}
}

// Rebuild replaces the path catalog and the top-of-book store from a fresh
// instrument list. Opportunity states survive a rebuild; symbol state and
// history do not. Call before Run, or never concurrently with it.
func (e *Engine) Rebuild(instruments []domain.Instrument) {
	e.catalog = BuildCatalog(instruments, e.cfg.BaseCoin)
	e.store = NewBookStore(e.cfg.HistoryLength, e.cfg.MinDistinctStates)

	bysym := make(map[string]domain.Instrument, len(instruments))
	for _, in := range instruments {
		bysym[in.Symbol] = in
	}
	for _, sym := range e.catalog.Symbols() {
		e.store.Track(sym, bysym[sym].TickDecimals())
	}

	e.logger.Info("catalog rebuilt",
		slog.String("base", e.cfg.BaseCoin),
		slog.Int("paths", e.catalog.Len()),
		slog.Int("instruments", len(instruments)),
		slog.Int("subscribed", e.store.Len()),
	)
}

// Symbols returns the subscription set for the market-data transport.
func (e *Engine) Symbols() []string {
	if e.catalog == nil {
		return nil
	}
	return e.catalog.Symbols()
}

// PathCount returns the number of cataloged paths.
func (e *Engine) PathCount() int {
	if e.catalog == nil {
		return 0
	}
	return e.catalog.Len()
}

// Events returns the outbound flow-event channel.
func (e *Engine) Events() <-chan domain.FlowEvent { return e.events }

// Snapshots returns the outbound snapshot channel (periodic active sets, or
// raw per-tick sets when filters are disabled).
func (e *Engine) Snapshots() <-chan domain.Snapshot { return e.snapshots }

// HandleTicker queues one inbound top-of-book event. It blocks when the
// engine is saturated so that events are processed strictly in arrival
// order; drop policy belongs to the transport.
func (e *Engine) HandleTicker(ctx context.Context, t domain.BookTicker) error {
	select {
	case e.tickers <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the engine's single processing loop. It owns all core state for its
// lifetime and exits when the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopBroadcast()
	e.logger.Info("engine started", slog.Int("paths", e.PathCount()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-e.tickers:
			e.process(t)
		case now := <-e.broadcastC:
			if snap := e.activeSnapshot(now); len(snap.Active) > 0 {
				e.emitSnapshot(snap)
			}
			e.ensureBroadcast()
		}
	}
}

// process handles one top-of-book event end to end: store update, recompute
// of the paths referencing the symbol, and lifecycle evaluation per path.
func (e *Engine) process(t domain.BookTicker) {
	if e.catalog == nil || !e.store.Update(t) {
		return
	}
	now := t.Time

	var raw []domain.ActivePath
	for _, p := range e.catalog.PathsFor(t.Symbol) {
		val, ok := e.recompute(p, now)
		if !ok {
			continue
		}
		e.lastVal[p.ID()] = val

		if !e.cfg.FiltersEnabled {
			raw = append(raw, domain.ActivePath{
				PathID:      p.ID(),
				Value:       val.Value,
				Description: val.Describe(),
			})
			continue
		}
		e.evaluate(p, val, now)
	}

	if !e.cfg.FiltersEnabled {
		if len(raw) > 0 {
			sortByValueDesc(raw)
			e.emitSnapshot(domain.Snapshot{Active: raw, Raw: true, Time: now})
		}
		return
	}

	e.ensureBroadcast()
}

// activeSnapshot collects the currently active paths, best value first.
func (e *Engine) activeSnapshot(now time.Time) domain.Snapshot {
	snap := domain.Snapshot{Time: now}
	for _, p := range e.catalog.Paths() {
		id := p.ID()
		st, ok := e.states[id]
		if !ok || !st.Active {
			continue
		}
		val := e.lastVal[id]
		snap.Active = append(snap.Active, domain.ActivePath{
			PathID:      id,
			Value:       val.Value,
			Description: val.Describe(),
			Since:       st.ActivatedAt,
		})
	}
	sortByValueDesc(snap.Active)
	return snap
}

// ensureBroadcast starts the snapshot ticker when any path is active and
// stops it once none remain, so idle periods incur no timer overhead.
func (e *Engine) ensureBroadcast() {
	switch {
	case e.activeCount > 0 && e.broadcast == nil:
		e.broadcast = time.NewTicker(e.cfg.BroadcastInterval)
		e.broadcastC = e.broadcast.C
	case e.activeCount == 0 && e.broadcast != nil:
		e.stopBroadcast()
	}
}

func (e *Engine) stopBroadcast() {
	if e.broadcast != nil {
		e.broadcast.Stop()
		e.broadcast = nil
		e.broadcastC = nil
	}
}

// emit hands a flow event to the outbound channel. Delivery problems in the
// collaborators must never stall the core, so a full channel drops the event
// with a warning instead of blocking.
func (e *Engine) emit(ev domain.FlowEvent) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event channel full, dropping flow event",
			slog.String("kind", string(ev.Kind)),
			slog.String("path_id", ev.PathID),
		)
	}
}

func (e *Engine) emitSnapshot(s domain.Snapshot) {
	select {
	case e.snapshots <- s:
	default:
	}
}

func sortByValueDesc(paths []domain.ActivePath) {
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Value > paths[j].Value
	})
}
