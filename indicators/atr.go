package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendsim/market"
)

// ATR is an exponentially weighted average of true range with
// alpha = 2/(period+1), seeded with the first true range. The value is
// reported once period bars have been seen.
type ATR struct {
	period      int
	alpha       float64
	atr         float64
	count       int
	prevClose   float64
	hasPrevious bool
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	return a.period
}

func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.prevClose = 0
	a.hasPrevious = false
}

func (a *ATR) Update(b market.Bar) {
	prev := b.Close
	if a.hasPrevious && a.prevClose != 0 {
		prev = a.prevClose
	}

	tr := trueRange(b, prev)
	if a.count == 0 {
		a.atr = tr
	} else {
		a.atr = a.alpha*tr + (1-a.alpha)*a.atr
	}
	a.count++

	a.prevClose = b.Close
	a.hasPrevious = true
}

func (a *ATR) Ready() bool {
	return a.period > 0 && a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// trueRange is the widest of high-low and the gaps from the previous close.
func trueRange(b market.Bar, prevClose float64) float64 {
	highLow := b.High - b.Low
	highClose := math.Abs(b.High - prevClose)
	lowClose := math.Abs(b.Low - prevClose)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
