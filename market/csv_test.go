package market

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBarsCSV(t *testing.T) {
	t.Parallel()

	in := `Time,Open,High,Low,Close,Volume,Ticker
2024-01-03,10.5,11,10,10.8,1200,FPT
2024-01-02,10,10.6,9.9,10.4,1000,FPT
`
	bars, err := ReadBarsCSV(strings.NewReader(in), "FPT", 1000)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, Day(2024, 1, 2), bars[0].Date)
	assert.Equal(t, "FPT", bars[0].Instrument)
	assert.InDelta(t, 10000, bars[0].Open, 1e-9)
	assert.InDelta(t, 10600, bars[0].High, 1e-9)
	assert.InDelta(t, 9900, bars[0].Low, 1e-9)
	assert.InDelta(t, 10400, bars[0].Close, 1e-9)
	assert.InDelta(t, 1000, bars[0].Volume, 1e-9)
	assert.Equal(t, Day(2024, 1, 3), bars[1].Date)
}

func TestReadBarsCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		errMsg string
	}{
		{"empty", "", "empty file"},
		{"missing column", "time,open,high,low,close\n2024-01-02,1,1,1,1\n", `missing column "volume"`},
		{"bad date", "time,open,high,low,close,volume\nyesterday,1,1,1,1,1\n", "bad date"},
		{"bad price", "time,open,high,low,close,volume\n2024-01-02,x,1,1,1,1\n", "bad open"},
		{"short row", "time,open,high,low,close,volume\n2024-01-02,1,1\n", "short row"},
		{"duplicate", "time,open,high,low,close,volume\n2024-01-02,1,1,1,1,1\n2024-01-02,1,1,1,1,1\n", "duplicate date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBarsCSV(strings.NewReader(tt.in), "X", 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"2024-03-05", "2024-03-05 00:00:00", "2024-03-05T15:04:05Z"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, Day(2024, 3, 5), d)
	}

	_, err := ParseDate("05/03/2024")
	assert.Error(t, err)
}
