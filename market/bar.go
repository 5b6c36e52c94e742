package market

import (
	"fmt"
	"strings"
	"time"
)

// Bar is one raw daily OHLCV record for an instrument.
type Bar struct {
	Date       time.Time
	Instrument string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
}

// InstrumentDay is a Bar augmented with the indicator columns the engine
// trades on. Indicator pointers are nil until their lookback window is
// filled; a nil value makes the row ineligible, it is never read as zero.
type InstrumentDay struct {
	Bar

	AllTimeHigh float64  // running max of close
	ATR         *float64 // exponentially weighted true range
	Volatility  *float64 // annualized stdev of log returns
	AvgVolume   *float64 // rolling mean of volume
}

// HasVolatility reports whether Volatility is defined and positive.
func (d InstrumentDay) HasVolatility() bool {
	return d.Volatility != nil && *d.Volatility > 0
}

// Date truncates t to a UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day builds a UTC calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD, "YYYY-MM-DD HH:MM:SS" or RFC3339 and
// returns the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q (want YYYY-MM-DD)", s)
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Float returns a pointer to v. Handy for building indicator rows.
func Float(v float64) *float64 {
	return &v
}
