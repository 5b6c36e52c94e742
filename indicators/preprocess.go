package indicators

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/trendsim/market"
)

// Windows are the lookback lengths used to build the indicator columns.
// They are fixed once a history has been computed.
type Windows struct {
	ATR        int `json:"atr" yaml:"atr"`
	Volatility int `json:"volatility" yaml:"volatility"`
	AvgVolume  int `json:"avg_volume" yaml:"avg_volume"`
}

// Validate checks every window is usable.
func (w Windows) Validate() error {
	if w.ATR < 1 {
		return fmt.Errorf("atr window must be >= 1, got %d", w.ATR)
	}
	if w.Volatility < 2 {
		return fmt.Errorf("volatility window must be >= 2, got %d", w.Volatility)
	}
	if w.AvgVolume < 1 {
		return fmt.Errorf("avg volume window must be >= 1, got %d", w.AvgVolume)
	}
	return nil
}

// Preprocess augments one instrument's bars with the indicator columns.
// Bars are sorted by date first; every bar must belong to the same
// instrument.
func Preprocess(bars []market.Bar, w Windows) ([]market.InstrumentDay, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}

	sorted := make([]market.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	inst := sorted[0].Instrument
	ath := NewRunningMax()
	atr := NewATR(w.ATR)
	vol := NewVolatility(w.Volatility)
	avgVol := NewRollingMean(w.AvgVolume)

	out := make([]market.InstrumentDay, 0, len(sorted))
	for _, b := range sorted {
		if b.Instrument != inst {
			return nil, fmt.Errorf("preprocess: mixed instruments %q and %q", inst, b.Instrument)
		}
		b.Date = market.Date(b.Date)

		ath.Update(b)
		atr.Update(b)
		vol.Update(b)
		avgVol.Update(b)

		out = append(out, market.InstrumentDay{
			Bar:         b,
			AllTimeHigh: ath.Value(),
			ATR:         Optional(atr),
			Volatility:  Optional(vol),
			AvgVolume:   Optional(avgVol),
		})
	}
	return out, nil
}
