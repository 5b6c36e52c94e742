package market

import (
	"fmt"
	"sort"
	"time"
)

// View is an immutable table of InstrumentDay rows ordered by date then
// instrument.
type View struct {
	dates []time.Time
	days  map[time.Time][]InstrumentDay
	index map[time.Time]map[string]int
	rows  int
}

// NewView builds a View. Dates are normalized to UTC calendar days and
// duplicate (date, instrument) rows are rejected.
func NewView(rows []InstrumentDay) (*View, error) {
	v := &View{
		days:  make(map[time.Time][]InstrumentDay),
		index: make(map[time.Time]map[string]int),
	}

	for _, r := range rows {
		if r.Instrument == "" {
			return nil, fmt.Errorf("view: row on %s has no instrument", FormatDate(r.Date))
		}
		d := Date(r.Date)
		r.Date = d
		v.days[d] = append(v.days[d], r)
	}

	for d, day := range v.days {
		sort.Slice(day, func(i, j int) bool { return day[i].Instrument < day[j].Instrument })
		idx := make(map[string]int, len(day))
		for i, r := range day {
			if _, dup := idx[r.Instrument]; dup {
				return nil, fmt.Errorf("view: duplicate row %s %s", FormatDate(d), r.Instrument)
			}
			idx[r.Instrument] = i
		}
		v.index[d] = idx
		v.dates = append(v.dates, d)
		v.rows += len(day)
	}
	sort.Slice(v.dates, func(i, j int) bool { return v.dates[i].Before(v.dates[j]) })

	return v, nil
}

// Len returns the total number of rows.
func (v *View) Len() int { return v.rows }

// Dates returns all trading days in ascending order.
func (v *View) Dates() []time.Time {
	out := make([]time.Time, len(v.dates))
	copy(out, v.dates)
	return out
}

// FirstDate returns the earliest trading day, zero if the view is empty.
func (v *View) FirstDate() time.Time {
	if len(v.dates) == 0 {
		return time.Time{}
	}
	return v.dates[0]
}

// LastDate returns the latest trading day, zero if the view is empty.
func (v *View) LastDate() time.Time {
	if len(v.dates) == 0 {
		return time.Time{}
	}
	return v.dates[len(v.dates)-1]
}

// Between returns the trading days within [from, to]. A zero bound is open.
func (v *View) Between(from, to time.Time) []time.Time {
	var out []time.Time
	for _, d := range v.dates {
		if !from.IsZero() && d.Before(Date(from)) {
			continue
		}
		if !to.IsZero() && d.After(Date(to)) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Day returns every row for date, sorted by instrument.
func (v *View) Day(date time.Time) []InstrumentDay {
	day := v.days[Date(date)]
	out := make([]InstrumentDay, len(day))
	copy(out, day)
	return out
}

// Row returns the row for (date, instrument).
func (v *View) Row(date time.Time, instrument string) (InstrumentDay, bool) {
	d := Date(date)
	i, ok := v.index[d][instrument]
	if !ok {
		return InstrumentDay{}, false
	}
	return v.days[d][i], true
}

// Instruments returns the distinct instrument ids in the view, sorted.
func (v *View) Instruments() []string {
	seen := map[string]struct{}{}
	for _, day := range v.days {
		for _, r := range day {
			seen[r.Instrument] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
