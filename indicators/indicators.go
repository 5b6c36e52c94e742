// Package indicators computes the per-day indicator columns the trend engine
// trades on: running high, true-range average, realized volatility and
// average volume.
package indicators

import "github.com/rustyeddy/trendsim/market"

// Indicator computes a single streaming value from daily bars.
// It is deterministic; feeding the same bars yields the same values.
type Indicator interface {
	// Name returns a stable identifier like "ATR(42)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next bar, in date order.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value. Callers must check Ready().
	Value() float64
}

// Optional returns a pointer to the indicator value, or nil while the
// indicator is still warming up.
func Optional(ind Indicator) *float64 {
	if !ind.Ready() {
		return nil
	}
	v := ind.Value()
	return &v
}
