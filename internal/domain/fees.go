package domain

// FeeMode selects which side of the fee schedule a valuation uses.
type FeeMode string

const (
	FeeModeMaker FeeMode = "maker"
	FeeModeTaker FeeMode = "taker"
)

// FeeRate holds the maker and taker fee for one symbol, as fractions
// (0.001 = 0.1%).
type FeeRate struct {
	Maker float64
	Taker float64
}

// ByMode returns the rate matching the given mode. Any unrecognized mode
// falls back to taker, the conservative side.
func (f FeeRate) ByMode(mode FeeMode) float64 {
	if mode == FeeModeMaker {
		return f.Maker
	}
	return f.Taker
}

// FeeSource is the fee-schedule collaborator consulted during valuation.
// Implementations must be safe for lookup from the engine goroutine; a miss
// is not an error, the engine substitutes its configured default rate.
type FeeSource interface {
	Rate(symbol string) (FeeRate, bool)
}

// StaticFees is a FeeSource backed by a fixed map. Used when the fee schedule
// could not be fetched and in tests.
type StaticFees map[string]FeeRate

// Rate implements FeeSource.
func (s StaticFees) Rate(symbol string) (FeeRate, bool) {
	r, ok := s[symbol]
	return r, ok
}
