package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCosts = Costs{Commission: 0.0015, SellTax: 0.001, Slippage: 0.0005}

func newLedger(t *testing.T, cash float64) *Ledger {
	t.Helper()
	return New(testCosts, 10, cash)
}

func TestBuyNewPositionWithSeed(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 1_000_000)
	atr := 2.0
	fill, err := l.Buy("FPT", 100, 1000, &StopLossSeed{AllTimeHigh: 100, ATR: &atr, Close: 100})
	require.NoError(t, err)

	cost := 100 * 1000 * (1 + 0.0015 + 0.0005)
	assert.InDelta(t, 1_000_000-cost, l.Cash(), 1e-6)
	assert.InDelta(t, -cost, fill.Amount, 1e-6)
	assert.True(t, fill.Opened)
	assert.Equal(t, Buy, fill.Side)

	p, ok := l.Position("FPT")
	require.True(t, ok)
	assert.Equal(t, int64(1000), p.Quantity)
	assert.Equal(t, 100.0, p.EntryPrice)

	stop, ok := l.StopLoss("FPT")
	require.True(t, ok)
	assert.InDelta(t, 100*math.Pow(0.98, 10), stop, 1e-9)
	assert.InDelta(t, stop, fill.StopLoss, 1e-12)
}

func TestBuyDefaultStop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		seed *StopLossSeed
	}{
		{"no seed", nil},
		{"undefined atr", &StopLossSeed{AllTimeHigh: 120, Close: 110}},
		{"zero close", &StopLossSeed{AllTimeHigh: 120, ATR: floatPtr(3), Close: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t, 1_000_000)
			_, err := l.Buy("VNM", 50, 100, tt.seed)
			require.NoError(t, err)

			stop, ok := l.StopLoss("VNM")
			require.True(t, ok)
			assert.InDelta(t, 50*DefaultStopFraction, stop, 1e-9)
		})
	}
}

func TestBuyAddsAndAveragesEntry(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 10_000_000)
	_, err := l.Buy("FPT", 100, 100, nil)
	require.NoError(t, err)
	stop, _ := l.StopLoss("FPT")

	fill, err := l.Buy("FPT", 130, 200, &StopLossSeed{AllTimeHigh: 999, ATR: floatPtr(1), Close: 130})
	require.NoError(t, err)
	assert.False(t, fill.Opened)

	p, _ := l.Position("FPT")
	assert.Equal(t, int64(300), p.Quantity)
	assert.InDelta(t, (100.0*100+130.0*200)/300, p.EntryPrice, 1e-9)

	// seed only applies to brand new positions
	after, _ := l.StopLoss("FPT")
	assert.Equal(t, stop, after)
}

func TestBuyInsufficientCash(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 10_000)
	_, err := l.Buy("FPT", 100, 100, nil) // needs 10020
	require.ErrorIs(t, err, ErrInsufficientCash)

	assert.Equal(t, 10_000.0, l.Cash())
	assert.False(t, l.Holds("FPT"))
	_, ok := l.StopLoss("FPT")
	assert.False(t, ok)
}

func TestBuySellRejectBadInput(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 10_000)
	_, err := l.Buy("FPT", 100, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = l.Buy("FPT", 0, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = l.Sell("FPT", 100, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 10_000.0, l.Cash())
}

func TestSellPartialAndFull(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 1_000_000)
	_, err := l.Buy("FPT", 100, 1000, nil)
	require.NoError(t, err)
	cashAfterBuy := l.Cash()

	fill, err := l.Sell("FPT", 110, 400)
	require.NoError(t, err)
	proceeds := 110 * 400 * (1 - 0.0015 - 0.001 - 0.0005)
	assert.InDelta(t, proceeds, fill.Amount, 1e-6)
	assert.InDelta(t, cashAfterBuy+proceeds, l.Cash(), 1e-6)
	assert.False(t, fill.Closed)
	assert.Equal(t, int64(600), l.Quantity("FPT"))

	fill, err = l.Sell("FPT", 110, 600)
	require.NoError(t, err)
	assert.True(t, fill.Closed)

	assert.False(t, l.Holds("FPT"))
	assert.Empty(t, l.Positions())
	_, ok := l.StopLoss("FPT")
	assert.False(t, ok, "stop must be removed with the position")
}

func TestSellInvalid(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 1_000_000)
	_, err := l.Sell("FPT", 100, 1)
	require.ErrorIs(t, err, ErrInvalidOrder)

	_, err = l.Buy("FPT", 100, 10, nil)
	require.NoError(t, err)
	cash := l.Cash()

	_, err = l.Sell("FPT", 100, 11)
	require.ErrorIs(t, err, ErrInvalidOrder)
	assert.Equal(t, cash, l.Cash())
	assert.Equal(t, int64(10), l.Quantity("FPT"))
}

func TestValuationAndSnapshot(t *testing.T) {
	t.Parallel()

	l := New(Costs{}, 10, 10_000)
	_, err := l.Buy("AAA", 10, 100, nil)
	require.NoError(t, err)
	_, err = l.Buy("BBB", 20, 100, nil)
	require.NoError(t, err)
	require.InDelta(t, 7_000, l.Cash(), 1e-9)

	// BBB unpriced contributes nothing
	prices := map[string]float64{"AAA": 12}
	assert.InDelta(t, 1_200, l.StockValue(prices), 1e-9)
	assert.InDelta(t, 8_200, l.TotalValue(prices), 1e-9)

	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := l.RecordSnapshot(d, map[string]float64{"AAA": 12, "BBB": 18})
	assert.Equal(t, d, s.Date)
	assert.InDelta(t, 7_000+1_200+1_800, s.NAV, 1e-9)
	assert.InDelta(t, 3_000/s.NAV, s.Exposure, 1e-12)
	assert.Equal(t, 2, s.Positions)
	assert.Equal(t, []Snapshot{s}, l.History())
}

func TestSnapshotNonPositiveNAV(t *testing.T) {
	t.Parallel()

	l := New(Costs{}, 10, 0)
	s := l.RecordSnapshot(time.Now(), nil)
	assert.Equal(t, 0.0, s.NAV)
	assert.Equal(t, 0.0, s.Exposure)
}

func TestRaiseStopLossRatchets(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 1_000_000)
	assert.False(t, l.RaiseStopLoss("FPT", 50), "not held")

	_, err := l.Buy("FPT", 100, 10, nil)
	require.NoError(t, err)

	assert.True(t, l.RaiseStopLoss("FPT", 95))
	assert.False(t, l.RaiseStopLoss("FPT", 94))
	assert.False(t, l.RaiseStopLoss("FPT", 95))
	stop, _ := l.StopLoss("FPT")
	assert.Equal(t, 95.0, stop)
}

func TestStopPrice(t *testing.T) {
	t.Parallel()

	s, ok := StopPrice(200, floatPtr(10), 100, 2)
	require.True(t, ok)
	assert.InDelta(t, 200*0.9*0.9, s, 1e-9)

	_, ok = StopPrice(200, nil, 100, 2)
	assert.False(t, ok)
	_, ok = StopPrice(200, floatPtr(10), 0, 2)
	assert.False(t, ok)

	// ATR above close with a fractional multiplier has no real stop.
	_, ok = StopPrice(150, floatPtr(200), 150, 1.5)
	assert.False(t, ok)
}

func TestRaiseStopLossIgnoresNonFinite(t *testing.T) {
	t.Parallel()

	l := newLedger(t, 1_000_000)
	_, err := l.Buy("FPT", 100, 10, nil)
	require.NoError(t, err)
	require.True(t, l.RaiseStopLoss("FPT", 95))

	assert.False(t, l.RaiseStopLoss("FPT", math.NaN()))
	assert.False(t, l.RaiseStopLoss("FPT", math.Inf(1)))

	// A lower real candidate still cannot lower the stop.
	assert.False(t, l.RaiseStopLoss("FPT", 70))
	stop, _ := l.StopLoss("FPT")
	assert.Equal(t, 95.0, stop)
}

func TestBuyUnusableSeedFallsBackToDefaultStop(t *testing.T) {
	t.Parallel()

	l := New(Costs{}, 1.5, 1_000_000)
	fill, err := l.Buy("FPT", 100, 10, &StopLossSeed{AllTimeHigh: 150, ATR: floatPtr(200), Close: 150})
	require.NoError(t, err)

	stop, ok := l.StopLoss("FPT")
	require.True(t, ok)
	assert.InDelta(t, 100*DefaultStopFraction, stop, 1e-9)
	assert.Equal(t, stop, fill.StopLoss)
}

func TestUnrealizedPL(t *testing.T) {
	t.Parallel()

	l := New(Costs{}, 10, 10_000)
	_, err := l.Buy("AAA", 10, 100, nil)
	require.NoError(t, err)
	_, err = l.Buy("AAA", 14, 100, nil)
	require.NoError(t, err)
	_, err = l.Buy("BBB", 20, 50, nil)
	require.NoError(t, err)

	p, _ := l.Position("AAA")
	assert.InDelta(t, 200*(15-12), p.UnrealizedPL(15), 1e-9)

	// BBB unpriced contributes nothing
	assert.InDelta(t, 600, l.UnrealizedPL(map[string]float64{"AAA": 15}), 1e-9)
	assert.InDelta(t, 600-250, l.UnrealizedPL(map[string]float64{"AAA": 15, "BBB": 15}), 1e-9)
}

func floatPtr(v float64) *float64 { return &v }
