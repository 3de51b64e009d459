package domain

// LegDirection indicates how a leg's price enters the round-trip product when
// converting along the path.
type LegDirection string

const (
	// DirNum means the conversion crosses the bid: the leg's bid price is
	// multiplied in directly.
	DirNum LegDirection = "num"
	// DirDen means the conversion crosses the ask: the reciprocal of the
	// leg's ask price is multiplied in.
	DirDen LegDirection = "den"
)

// Leg is one tradable symbol used inside a triangular path, together with the
// direction its price is applied and the currencies it converts between.
type Leg struct {
	Symbol    string
	Direction LegDirection
	From      string
	To        string
}

// Path is a three-leg conversion cycle anchored at the base currency:
// base -> C2 -> C3 -> base. Paths are immutable once the catalog is built.
type Path struct {
	Legs [3]Leg
	Base string
	C2   string
	C3   string

	// Observed lists the symbols of the legs that do not trade the base
	// currency on either side. These are the legs watched by the freeze
	// detector while the path is active.
	Observed []string
}

// ID returns the path identity: the ordered triple of its leg symbols.
func (p *Path) ID() string {
	return p.Legs[0].Symbol + "|" + p.Legs[1].Symbol + "|" + p.Legs[2].Symbol
}

// Symbols returns the three leg symbols in path order.
func (p *Path) Symbols() [3]string {
	return [3]string{p.Legs[0].Symbol, p.Legs[1].Symbol, p.Legs[2].Symbol}
}
