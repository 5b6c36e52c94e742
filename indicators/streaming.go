package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendsim/market"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// RunningMax tracks the highest close seen so far, today included.
type RunningMax struct {
	max   float64
	count int
}

func NewRunningMax() *RunningMax { return &RunningMax{} }

func (m *RunningMax) Name() string { return "ATH" }
func (m *RunningMax) Warmup() int  { return 1 }

func (m *RunningMax) Reset() {
	m.max = 0
	m.count = 0
}

func (m *RunningMax) Update(b market.Bar) {
	if m.count == 0 || b.Close > m.max {
		m.max = b.Close
	}
	m.count++
}

func (m *RunningMax) Ready() bool { return m.count > 0 }

func (m *RunningMax) Value() float64 { return m.max }

// RollingMean is a simple moving average of volume.
type RollingMean struct {
	period int
	window []float64
}

// NewRollingMean creates a rolling mean of bar volume over period bars.
func NewRollingMean(period int) *RollingMean {
	return &RollingMean{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *RollingMean) Name() string {
	return fmt.Sprintf("AvgVolume(%d)", m.period)
}

func (m *RollingMean) Warmup() int { return m.period }

func (m *RollingMean) Reset() {
	m.window = m.window[:0]
}

func (m *RollingMean) Update(b market.Bar) {
	m.window = push(m.window, b.Volume, m.period)
}

func (m *RollingMean) Ready() bool {
	return m.period > 0 && len(m.window) >= m.period
}

func (m *RollingMean) Value() float64 {
	if !m.Ready() {
		return 0
	}
	sum := 0.0
	for _, v := range m.window {
		sum += v
	}
	return sum / float64(len(m.window))
}

// Volatility is the annualized sample standard deviation of daily log
// returns over period bars. The first bar, and any bar whose previous close
// is zero, contributes a zero return; so does a non-positive price ratio.
type Volatility struct {
	period      int
	returns     []float64
	prevClose   float64
	hasPrevious bool
}

// NewVolatility creates a rolling realized-volatility indicator.
func NewVolatility(period int) *Volatility {
	return &Volatility{
		period:  period,
		returns: make([]float64, 0, period),
	}
}

func (v *Volatility) Name() string {
	return fmt.Sprintf("Volatility(%d)", v.period)
}

func (v *Volatility) Warmup() int { return v.period }

func (v *Volatility) Reset() {
	v.returns = v.returns[:0]
	v.prevClose = 0
	v.hasPrevious = false
}

func (v *Volatility) Update(b market.Bar) {
	prev := b.Close
	if v.hasPrevious && v.prevClose != 0 {
		prev = v.prevClose
	}

	r := 0.0
	if prev != 0 {
		if ratio := b.Close / prev; ratio > 0 {
			r = math.Log(ratio)
		}
	}
	v.returns = push(v.returns, r, v.period)

	v.prevClose = b.Close
	v.hasPrevious = true
}

// Ready needs at least two returns for a sample deviation.
func (v *Volatility) Ready() bool {
	return v.period > 1 && len(v.returns) >= v.period
}

func (v *Volatility) Value() float64 {
	if !v.Ready() {
		return 0
	}
	n := float64(len(v.returns))
	mean := 0.0
	for _, r := range v.returns {
		mean += r
	}
	mean /= n

	ss := 0.0
	for _, r := range v.returns {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss/(n-1)) * math.Sqrt(TradingDaysPerYear)
}

func push(window []float64, v float64, period int) []float64 {
	window = append(window, v)
	if period > 0 && len(window) > period {
		copy(window, window[1:])
		window = window[:period]
	}
	return window
}
