// Package journal persists simulation output: daily NAV rows, fills and a
// per-run summary, to CSV files or SQLite.
package journal

import "time"

// Fill reasons recorded by the engine.
const (
	ReasonEntry     = "ENTRY"
	ReasonRebalance = "REBALANCE"
	ReasonStopLoss  = "STOP_LOSS"
	ReasonExit      = "EXIT"
)

// FillRecord is one executed order.
type FillRecord struct {
	RunID      string
	Date       time.Time
	Instrument string
	Side       string
	Quantity   int64
	Price      float64
	Amount     float64 // signed cash delta
	StopLoss   float64 // initial stop for new positions
	Reason     string
}

// NAVRecord is one end-of-day account snapshot.
type NAVRecord struct {
	RunID     string
	Date      time.Time
	NAV       float64
	Cash      float64
	Exposure  float64
	Positions int
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordNAV(NAVRecord) error
	Close() error
}
