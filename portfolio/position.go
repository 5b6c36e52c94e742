package portfolio

import "time"

// Side of a fill.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Position is a long holding in one instrument.
type Position struct {
	Instrument string
	Quantity   int64
	EntryPrice float64 // quantity-weighted average fill price
}

// Value marks the position at price.
func (p Position) Value(price float64) float64 {
	return float64(p.Quantity) * price
}

// UnrealizedPL is the mark-to-market gain over the average entry price,
// before costs.
func (p Position) UnrealizedPL(price float64) float64 {
	return float64(p.Quantity) * (price - p.EntryPrice)
}

// Fill is the ledger's receipt for an accepted order.
type Fill struct {
	Instrument string
	Side       Side
	Quantity   int64
	Price      float64
	Amount     float64 // signed cash delta, costs included
	StopLoss   float64 // initial stop for a new position, else 0
	Opened     bool    // the buy created the position
	Closed     bool    // the sell removed the position
}

// Snapshot is one end-of-day NAV history entry.
type Snapshot struct {
	Date      time.Time
	NAV       float64
	Cash      float64
	Exposure  float64 // stock value / NAV, 0 when NAV <= 0
	Positions int
}

// StopLossSeed carries the indicator values observed on the signal day,
// used to place the initial stop once the entry fills.
type StopLossSeed struct {
	AllTimeHigh float64
	ATR         *float64
	Close       float64
}
