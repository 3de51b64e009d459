package engine

import (
	"sort"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// Catalog is the full set of valid triangular paths through the base
// currency, built once from the instrument list, plus a reverse index used to
// select the minimal recompute set on each tick.
type Catalog struct {
	base     string
	paths    []*domain.Path
	bySymbol map[string][]*domain.Path
	symbols  []string
}

// BuildCatalog enumerates every three-leg cycle base -> c2 -> c3 -> base that
// can be assembled from the instrument list. A leg between currencies x and y
// resolves to symbol x+y with direction "num", or to y+x with direction
// "den"; when both symbols exist, "num" wins. A path is accepted only when
// all three legs resolve, and no currency repeats within a path other than
// the base at both ends.
func BuildCatalog(instruments []domain.Instrument, base string) *Catalog {
	bySym := make(map[string]domain.Instrument, len(instruments))
	coinSet := make(map[string]struct{})
	for _, in := range instruments {
		bySym[in.Symbol] = in
		coinSet[in.BaseCoin] = struct{}{}
		coinSet[in.QuoteCoin] = struct{}{}
	}

	coins := make([]string, 0, len(coinSet))
	for c := range coinSet {
		if c != base {
			coins = append(coins, c)
		}
	}
	sort.Strings(coins)

	resolve := func(from, to string) (domain.Leg, bool) {
		if _, ok := bySym[from+to]; ok {
			return domain.Leg{Symbol: from + to, Direction: domain.DirNum, From: from, To: to}, true
		}
		if _, ok := bySym[to+from]; ok {
			return domain.Leg{Symbol: to + from, Direction: domain.DirDen, From: from, To: to}, true
		}
		return domain.Leg{}, false
	}

	c := &Catalog{
		base:     base,
		bySymbol: make(map[string][]*domain.Path),
	}

	for _, c2 := range coins {
		for _, c3 := range coins {
			if c3 == c2 {
				continue
			}
			leg1, ok := resolve(base, c2)
			if !ok {
				continue
			}
			leg2, ok := resolve(c2, c3)
			if !ok {
				continue
			}
			leg3, ok := resolve(c3, base)
			if !ok {
				continue
			}

			p := &domain.Path{
				Legs: [3]domain.Leg{leg1, leg2, leg3},
				Base: base,
				C2:   c2,
				C3:   c3,
			}
			for _, leg := range p.Legs {
				if in, ok := bySym[leg.Symbol]; ok && !in.Involves(base) {
					p.Observed = append(p.Observed, leg.Symbol)
				}
			}
			c.paths = append(c.paths, p)
			for _, sym := range dedupe(p.Symbols()) {
				c.bySymbol[sym] = append(c.bySymbol[sym], p)
			}
		}
	}

	c.symbols = make([]string, 0, len(c.bySymbol))
	for sym := range c.bySymbol {
		c.symbols = append(c.symbols, sym)
	}
	sort.Strings(c.symbols)

	return c
}

// Paths returns every accepted path.
func (c *Catalog) Paths() []*domain.Path { return c.paths }

// PathsFor returns the paths that reference the given symbol on any leg.
func (c *Catalog) PathsFor(symbol string) []*domain.Path { return c.bySymbol[symbol] }

// Symbols returns the sorted union of symbols referenced by any path, which
// is the subscription set handed to the market-data transport.
func (c *Catalog) Symbols() []string { return c.symbols }

// Len returns the number of accepted paths.
func (c *Catalog) Len() int { return len(c.paths) }

// Base returns the base currency the catalog was built around.
func (c *Catalog) Base() string { return c.base }

// dedupe removes repeated symbols from a path's leg triple. Legs may share a
// symbol only in degenerate listings; the reverse index must still hold each
// path once per symbol.
func dedupe(syms [3]string) []string {
	out := syms[:0:0]
	for i, s := range syms {
		dup := false
		for _, prev := range syms[:i] {
			if prev == s {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}
