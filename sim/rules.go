package sim

import (
	"fmt"

	"github.com/rustyeddy/trendsim/portfolio"
)

// Rules are the strategy parameters the engine trades by. They are fixed
// for the duration of a run. Indicator lookback windows are not here: they
// are baked into the view by the preprocessor.
type Rules struct {
	MinPrice     float64 // close must be strictly above
	MinAvgVolume float64 // average volume must be strictly above

	ATRMultiplier      float64 // exponent of the stop discount
	TargetVolatility   float64 // annualized
	MinAssumedHoldings int     // floor on the weight divisor
	MaxLeverage        float64 // cap on the summed weights

	TurnoverControl    bool
	RebalanceThreshold float64 // fraction of NAV

	Costs          portfolio.Costs
	InitialCapital float64
}

func (r Rules) Validate() error {
	if r.InitialCapital <= 0 {
		return fmt.Errorf("sim: initial capital must be positive")
	}
	if r.TargetVolatility <= 0 {
		return fmt.Errorf("sim: target volatility must be positive")
	}
	if r.MaxLeverage <= 0 {
		return fmt.Errorf("sim: max leverage must be positive")
	}
	if r.MinAssumedHoldings < 1 {
		return fmt.Errorf("sim: min assumed holdings must be at least 1")
	}
	if r.ATRMultiplier < 0 {
		return fmt.Errorf("sim: atr multiplier must not be negative")
	}
	if r.RebalanceThreshold < 0 || r.RebalanceThreshold >= 1 {
		return fmt.Errorf("sim: rebalance threshold must be in [0,1)")
	}
	c := r.Costs
	if c.Commission < 0 || c.SellTax < 0 || c.Slippage < 0 {
		return fmt.Errorf("sim: cost rates must not be negative")
	}
	if c.Commission+c.SellTax+c.Slippage >= 1 {
		return fmt.Errorf("sim: cost rates must sum below 1")
	}
	return nil
}
