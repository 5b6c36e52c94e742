package indicators

import (
	"math"
	"testing"

	"github.com/rustyeddy/trendsim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBars() []market.Bar {
	d := market.Day(2024, 1, 1)
	return []market.Bar{
		{Date: d, Instrument: "FPT", Open: 100, High: 105, Low: 99, Close: 102, Volume: 1000},
		{Date: d.AddDate(0, 0, 1), Instrument: "FPT", Open: 102, High: 107, Low: 101, Close: 105, Volume: 1100},
		{Date: d.AddDate(0, 0, 2), Instrument: "FPT", Open: 105, High: 108, Low: 104, Close: 106, Volume: 1200},
		{Date: d.AddDate(0, 0, 3), Instrument: "FPT", Open: 106, High: 110, Low: 105, Close: 108, Volume: 1300},
		{Date: d.AddDate(0, 0, 4), Instrument: "FPT", Open: 108, High: 112, Low: 107, Close: 110, Volume: 1400},
	}
}

func TestATRStreaming(t *testing.T) {
	bars := testBars()

	atr := NewATR(3)
	assert.Equal(t, "ATR(3)", atr.Name())
	assert.Equal(t, 3, atr.Warmup())

	// true ranges: 6, 6, 4, 5, 5 with alpha 0.5
	atr.Update(bars[0])
	assert.False(t, atr.Ready())
	assert.Equal(t, 0.0, atr.Value())
	atr.Update(bars[1])
	assert.False(t, atr.Ready())
	atr.Update(bars[2])
	require.True(t, atr.Ready())
	assert.InDelta(t, 5.0, atr.Value(), 1e-9)
	atr.Update(bars[3])
	assert.InDelta(t, 5.0, atr.Value(), 1e-9)

	atr.Reset()
	assert.False(t, atr.Ready())
}

func TestATRZeroPreviousClose(t *testing.T) {
	atr := NewATR(1)
	atr.Update(market.Bar{High: 1, Low: 1, Close: 0})
	// previous close of zero falls back to today's close
	atr.Update(market.Bar{High: 12, Low: 9, Close: 10})
	assert.InDelta(t, 3.0, atr.Value(), 1e-9)
}

func TestRunningMax(t *testing.T) {
	m := NewRunningMax()
	assert.False(t, m.Ready())

	for _, c := range []float64{10, 12, 11, 12, 9} {
		m.Update(market.Bar{Close: c})
	}
	assert.True(t, m.Ready())
	assert.Equal(t, 12.0, m.Value())
}

func TestRollingMean(t *testing.T) {
	bars := testBars()
	m := NewRollingMean(2)

	m.Update(bars[0])
	assert.False(t, m.Ready())
	assert.Nil(t, Optional(m))

	m.Update(bars[1])
	require.True(t, m.Ready())
	assert.InDelta(t, 1050.0, m.Value(), 1e-9)

	m.Update(bars[2])
	assert.InDelta(t, 1150.0, m.Value(), 1e-9)
	require.NotNil(t, Optional(m))
	assert.InDelta(t, 1150.0, *Optional(m), 1e-9)
}

func TestVolatility(t *testing.T) {
	v := NewVolatility(3)
	assert.Equal(t, "Volatility(3)", v.Name())

	for _, c := range []float64{100, 110, 99} {
		v.Update(market.Bar{Close: c})
	}
	require.True(t, v.Ready())

	rs := []float64{0, math.Log(1.1), math.Log(0.9)}
	mean := (rs[0] + rs[1] + rs[2]) / 3
	ss := 0.0
	for _, r := range rs {
		ss += (r - mean) * (r - mean)
	}
	want := math.Sqrt(ss/2) * math.Sqrt(252)
	assert.InDelta(t, want, v.Value(), 1e-12)

	// window slides: 110 -> 99 -> 99 gives returns ln(1.1), ln(0.9), 0
	v.Update(market.Bar{Close: 99})
	assert.InDelta(t, want, v.Value(), 1e-12)
}

func TestVolatilityFlatPriceIsZero(t *testing.T) {
	v := NewVolatility(2)
	v.Update(market.Bar{Close: 50})
	v.Update(market.Bar{Close: 50})
	require.True(t, v.Ready())
	assert.Equal(t, 0.0, v.Value())
}

func TestPreprocess(t *testing.T) {
	bars := testBars()
	// feed out of order, Preprocess sorts
	shuffled := []market.Bar{bars[3], bars[0], bars[4], bars[2], bars[1]}

	rows, err := Preprocess(shuffled, Windows{ATR: 3, Volatility: 3, AvgVolume: 2})
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, bars[0].Date, rows[0].Date)
	assert.Equal(t, 102.0, rows[0].AllTimeHigh)
	assert.Nil(t, rows[0].ATR)
	assert.Nil(t, rows[0].Volatility)
	assert.Nil(t, rows[0].AvgVolume)
	assert.False(t, rows[0].HasVolatility())

	assert.NotNil(t, rows[1].AvgVolume)
	assert.Nil(t, rows[1].ATR)

	require.NotNil(t, rows[2].ATR)
	assert.InDelta(t, 5.0, *rows[2].ATR, 1e-9)
	require.NotNil(t, rows[2].Volatility)
	assert.True(t, rows[2].HasVolatility())

	assert.Equal(t, 110.0, rows[4].AllTimeHigh)
}

func TestPreprocessErrors(t *testing.T) {
	_, err := Preprocess(testBars(), Windows{ATR: 3, Volatility: 1, AvgVolume: 2})
	assert.Error(t, err)

	bars := testBars()
	bars[2].Instrument = "VNM"
	_, err = Preprocess(bars, Windows{ATR: 3, Volatility: 3, AvgVolume: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed instruments")

	rows, err := Preprocess(nil, Windows{ATR: 3, Volatility: 3, AvgVolume: 2})
	assert.NoError(t, err)
	assert.Empty(t, rows)
}
