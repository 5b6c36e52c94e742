// Package portfolio holds the position ledger: cash, long positions,
// per-instrument trailing stops and the daily NAV history.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultStopFraction places a new position's stop at 93% of its fill
// price when the entry seed cannot produce an ATR-based stop.
const DefaultStopFraction = 0.93

var (
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrInvalidOrder     = errors.New("invalid order")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidPrice     = errors.New("price must be positive")
)

// Costs are flat per-trade rates applied to the notional.
type Costs struct {
	Commission float64 `json:"commission_rate" yaml:"commission_rate"`
	SellTax    float64 `json:"sell_tax_rate" yaml:"sell_tax_rate"`
	Slippage   float64 `json:"slippage_rate" yaml:"slippage_rate"`
}

// BuyCost is the cash debited for buying quantity at price.
func (c Costs) BuyCost(price float64, quantity int64) float64 {
	return price * float64(quantity) * (1 + c.Commission + c.Slippage)
}

// SellProceeds is the cash credited for selling quantity at price.
func (c Costs) SellProceeds(price float64, quantity int64) float64 {
	return price * float64(quantity) * (1 - c.Commission - c.SellTax - c.Slippage)
}

// StopPrice is the ATR-discounted stop below the running high:
//
//	ath * (1 - atr/close) ^ multiplier
//
// ok is false when close <= 0, atr is undefined, or the result is not a
// finite number (atr above close with a fractional multiplier).
func StopPrice(ath float64, atr *float64, close, multiplier float64) (float64, bool) {
	if close <= 0 || atr == nil {
		return 0, false
	}
	s := ath * math.Pow(1-*atr/close, multiplier)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, false
	}
	return s, true
}

// Ledger is the account state mutated by the simulation engine. It is not
// safe for concurrent use.
type Ledger struct {
	costs      Costs
	multiplier float64

	cash      float64
	positions map[string]*Position
	stops     map[string]float64
	history   []Snapshot
}

// New creates a ledger holding only cash.
func New(costs Costs, atrMultiplier, initialCash float64) *Ledger {
	return &Ledger{
		costs:      costs,
		multiplier: atrMultiplier,
		cash:       initialCash,
		positions:  make(map[string]*Position),
		stops:      make(map[string]float64),
	}
}

func (l *Ledger) Cash() float64 { return l.cash }

// Holds reports whether instrument has an open position.
func (l *Ledger) Holds(instrument string) bool {
	_, ok := l.positions[instrument]
	return ok
}

// Quantity returns the held quantity, 0 when flat.
func (l *Ledger) Quantity(instrument string) int64 {
	if p, ok := l.positions[instrument]; ok {
		return p.Quantity
	}
	return 0
}

// Position returns a copy of the open position.
func (l *Ledger) Position(instrument string) (Position, bool) {
	p, ok := l.positions[instrument]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns copies of all open positions sorted by instrument.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Instruments returns the held instrument ids, sorted.
func (l *Ledger) Instruments() []string {
	out := make([]string, 0, len(l.positions))
	for id := range l.positions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// StopLoss returns the stop trigger for a held instrument.
func (l *Ledger) StopLoss(instrument string) (float64, bool) {
	s, ok := l.stops[instrument]
	return s, ok
}

// RaiseStopLoss moves the stop of a held instrument up to candidate. The
// stop never moves down and non-finite candidates are ignored; it reports
// whether the stop changed.
func (l *Ledger) RaiseStopLoss(instrument string, candidate float64) bool {
	if !l.Holds(instrument) || math.IsNaN(candidate) || math.IsInf(candidate, 0) {
		return false
	}
	if cur, ok := l.stops[instrument]; ok && candidate <= cur {
		return false
	}
	l.stops[instrument] = candidate
	return true
}

// StockValue sums quantity * price over held positions. Instruments without
// a price contribute nothing.
func (l *Ledger) StockValue(prices map[string]float64) float64 {
	total := 0.0
	for _, id := range l.Instruments() {
		if price, ok := prices[id]; ok {
			total += l.positions[id].Value(price)
		}
	}
	return total
}

// UnrealizedPL sums the unrealized P/L of held positions at prices.
// Instruments without a price contribute nothing.
func (l *Ledger) UnrealizedPL(prices map[string]float64) float64 {
	total := 0.0
	for _, id := range l.Instruments() {
		if price, ok := prices[id]; ok {
			total += l.positions[id].UnrealizedPL(price)
		}
	}
	return total
}

// TotalValue is cash plus StockValue.
func (l *Ledger) TotalValue(prices map[string]float64) float64 {
	return l.cash + l.StockValue(prices)
}

// RecordSnapshot appends the end-of-day NAV entry for date and returns it.
func (l *Ledger) RecordSnapshot(date time.Time, closes map[string]float64) Snapshot {
	stock := l.StockValue(closes)
	nav := l.cash + stock

	exposure := 0.0
	if nav > 0 {
		exposure = stock / nav
	}

	s := Snapshot{
		Date:      date,
		NAV:       nav,
		Cash:      l.cash,
		Exposure:  exposure,
		Positions: len(l.positions),
	}
	l.history = append(l.history, s)
	return s
}

// History returns a copy of the NAV history.
func (l *Ledger) History() []Snapshot {
	out := make([]Snapshot, len(l.history))
	copy(out, l.history)
	return out
}

// Buy debits cash for quantity at price. Adding to a position re-averages
// its entry price. A new position gets its stop from seed, or
// DefaultStopFraction of price when seed is nil or unusable. The ledger is
// unchanged on error.
func (l *Ledger) Buy(instrument string, price float64, quantity int64, seed *StopLossSeed) (Fill, error) {
	if quantity <= 0 {
		return Fill{}, fmt.Errorf("buy %s: %w", instrument, ErrInvalidQuantity)
	}
	if price <= 0 {
		return Fill{}, fmt.Errorf("buy %s: %w", instrument, ErrInvalidPrice)
	}

	cost := l.costs.BuyCost(price, quantity)
	if l.cash < cost {
		return Fill{}, fmt.Errorf("buy %d %s at %.2f needs %.2f, have %.2f: %w",
			quantity, instrument, price, cost, l.cash, ErrInsufficientCash)
	}
	l.cash -= cost

	fill := Fill{
		Instrument: instrument,
		Side:       Buy,
		Quantity:   quantity,
		Price:      price,
		Amount:     -cost,
	}

	if p, ok := l.positions[instrument]; ok {
		total := p.Quantity + quantity
		p.EntryPrice = (p.EntryPrice*float64(p.Quantity) + price*float64(quantity)) / float64(total)
		p.Quantity = total
		return fill, nil
	}

	l.positions[instrument] = &Position{
		Instrument: instrument,
		Quantity:   quantity,
		EntryPrice: price,
	}
	fill.Opened = true

	// A new position always leaves with a stop.
	stop := price * DefaultStopFraction
	if seed != nil {
		if s, ok := StopPrice(seed.AllTimeHigh, seed.ATR, seed.Close, l.multiplier); ok {
			stop = s
		}
	}
	l.stops[instrument] = stop
	fill.StopLoss = stop

	return fill, nil
}

// Sell credits cash for quantity at price. Selling the whole position
// removes it together with its stop. Selling an instrument that is not
// held, or more than is held, fails with ErrInvalidOrder and changes
// nothing.
func (l *Ledger) Sell(instrument string, price float64, quantity int64) (Fill, error) {
	if quantity <= 0 {
		return Fill{}, fmt.Errorf("sell %s: %w", instrument, ErrInvalidQuantity)
	}
	if price <= 0 {
		return Fill{}, fmt.Errorf("sell %s: %w", instrument, ErrInvalidPrice)
	}

	p, ok := l.positions[instrument]
	if !ok {
		return Fill{}, fmt.Errorf("sell %s: not held: %w", instrument, ErrInvalidOrder)
	}
	if p.Quantity < quantity {
		return Fill{}, fmt.Errorf("sell %d %s: only %d held: %w", quantity, instrument, p.Quantity, ErrInvalidOrder)
	}

	proceeds := l.costs.SellProceeds(price, quantity)
	l.cash += proceeds
	p.Quantity -= quantity

	fill := Fill{
		Instrument: instrument,
		Side:       Sell,
		Quantity:   quantity,
		Price:      price,
		Amount:     proceeds,
	}

	if p.Quantity == 0 {
		delete(l.positions, instrument)
		delete(l.stops, instrument)
		fill.Closed = true
	}
	return fill, nil
}
