package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zeroTime time.Time

func row(y, m, d int, inst string, close float64) InstrumentDay {
	return InstrumentDay{Bar: Bar{Date: Day(y, time.Month(m), d), Instrument: inst, Open: close, High: close, Low: close, Close: close}}
}

func TestViewOrdering(t *testing.T) {
	t.Parallel()

	v, err := NewView([]InstrumentDay{
		row(2024, 1, 3, "VNM", 3),
		row(2024, 1, 2, "VNM", 2),
		row(2024, 1, 2, "FPT", 1),
		row(2024, 1, 3, "ACB", 4),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, v.Len())
	assert.Equal(t, []string{"ACB", "FPT", "VNM"}, v.Instruments())
	require.Len(t, v.Dates(), 2)
	assert.Equal(t, Day(2024, 1, 2), v.FirstDate())
	assert.Equal(t, Day(2024, 1, 3), v.LastDate())

	day := v.Day(Day(2024, 1, 2))
	require.Len(t, day, 2)
	assert.Equal(t, "FPT", day[0].Instrument)
	assert.Equal(t, "VNM", day[1].Instrument)

	r, ok := v.Row(Day(2024, 1, 3), "ACB")
	require.True(t, ok)
	assert.Equal(t, 4.0, r.Close)

	_, ok = v.Row(Day(2024, 1, 3), "FPT")
	assert.False(t, ok)
}

func TestViewImmutable(t *testing.T) {
	t.Parallel()

	v, err := NewView([]InstrumentDay{row(2024, 1, 2, "FPT", 1)})
	require.NoError(t, err)

	day := v.Day(Day(2024, 1, 2))
	day[0].Close = 99

	r, _ := v.Row(Day(2024, 1, 2), "FPT")
	assert.Equal(t, 1.0, r.Close)

	dates := v.Dates()
	dates[0] = Day(1999, 1, 1)
	assert.Equal(t, Day(2024, 1, 2), v.FirstDate())
}

func TestViewDuplicateRejected(t *testing.T) {
	t.Parallel()

	_, err := NewView([]InstrumentDay{row(2024, 1, 2, "FPT", 1), row(2024, 1, 2, "FPT", 2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate row")

	_, err = NewView([]InstrumentDay{row(2024, 1, 2, "", 1)})
	assert.Error(t, err)
}

func TestViewBetween(t *testing.T) {
	t.Parallel()

	v, err := NewView([]InstrumentDay{
		row(2024, 1, 2, "FPT", 1),
		row(2024, 1, 3, "FPT", 1),
		row(2024, 1, 4, "FPT", 1),
		row(2024, 1, 5, "FPT", 1),
	})
	require.NoError(t, err)

	assert.Len(t, v.Between(Day(2024, 1, 3), Day(2024, 1, 4)), 2)
	assert.Empty(t, v.Between(Day(2024, 1, 4), Day(2024, 1, 3)))
	assert.Len(t, v.Between(Day(2024, 1, 4), zeroTime), 2)
	assert.Len(t, v.Between(zeroTime, zeroTime), 4)
	assert.Empty(t, v.Between(Day(2025, 1, 1), zeroTime))
}
