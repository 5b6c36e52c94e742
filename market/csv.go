package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var barColumns = []string{"time", "open", "high", "low", "close", "volume"}

// ReadBarsCSV reads daily bars for one instrument:
//
//	time,open,high,low,close,volume[,extra...]
//
// The header row is required; column names are matched case-insensitively
// and extra columns are ignored. OHLC values are multiplied by scale
// (0 means 1). Rows come back sorted by date; duplicate dates are an error.
func ReadBarsCSV(r io.Reader, instrument string, scale float64) ([]Bar, error) {
	if scale == 0 {
		scale = 1
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", instrument)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", instrument, err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", instrument, err)
	}

	var bars []Bar
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", instrument, line, err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		b, err := parseBarRow(row, cols, instrument, scale)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", instrument, line, err)
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Equal(bars[i-1].Date) {
			return nil, fmt.Errorf("%s: duplicate date %s", instrument, FormatDate(bars[i].Date))
		}
	}

	return bars, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, ok := cols[name]; !ok {
			cols[name] = i
		}
	}
	for _, want := range barColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("missing column %q", want)
		}
	}
	return cols, nil
}

func parseBarRow(row []string, cols map[string]int, instrument string, scale float64) (Bar, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(row) {
			return "", fmt.Errorf("short row, no %s", name)
		}
		return strings.TrimSpace(row[i]), nil
	}

	ts, err := field("time")
	if err != nil {
		return Bar{}, err
	}
	date, err := ParseDate(ts)
	if err != nil {
		return Bar{}, err
	}

	var vals [5]float64
	for i, name := range barColumns[1:] {
		s, err := field(name)
		if err != nil {
			return Bar{}, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad %s %q: %w", name, s, err)
		}
		vals[i] = v
	}

	return Bar{
		Date:       date,
		Instrument: instrument,
		Open:       vals[0] * scale,
		High:       vals[1] * scale,
		Low:        vals[2] * scale,
		Close:      vals[3] * scale,
		Volume:     vals[4],
	}, nil
}
