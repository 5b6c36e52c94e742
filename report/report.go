// Package report derives performance statistics from a NAV history.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/rustyeddy/trendsim/journal"
	"github.com/rustyeddy/trendsim/portfolio"
)

const daysPerYear = 365.25

// Summary is the headline statistics of a run.
type Summary struct {
	Start time.Time
	End   time.Time
	Days  int     // trading days
	Years float64 // calendar span / 365.25

	InitialNAV  float64
	FinalNAV    float64
	TotalReturn float64
	CAGR        float64
	MaxDrawdown float64 // fraction below the running peak

	AvgExposure  float64
	AvgPositions float64
}

// Summarize computes a Summary. CAGR is 0 when the span is under a day or
// initial is not positive.
func Summarize(history []portfolio.Snapshot, initial float64) Summary {
	s := Summary{InitialNAV: initial, Days: len(history)}
	if len(history) == 0 {
		s.FinalNAV = initial
		return s
	}

	s.Start = history[0].Date
	s.End = history[len(history)-1].Date
	s.FinalNAV = history[len(history)-1].NAV
	s.Years = s.End.Sub(s.Start).Hours() / 24 / daysPerYear

	if initial > 0 {
		s.TotalReturn = s.FinalNAV/initial - 1
		if s.Years > 0 && s.FinalNAV > 0 {
			s.CAGR = math.Pow(s.FinalNAV/initial, 1/s.Years) - 1
		}
	}

	peak := math.Inf(-1)
	var exposure, positions float64
	for _, h := range history {
		if h.NAV > peak {
			peak = h.NAV
		}
		if peak > 0 {
			if dd := 1 - h.NAV/peak; dd > s.MaxDrawdown {
				s.MaxDrawdown = dd
			}
		}
		exposure += h.Exposure
		positions += float64(h.Positions)
	}
	n := float64(len(history))
	s.AvgExposure = exposure / n
	s.AvgPositions = positions / n

	return s
}

// Fill copies the statistics onto a journal run record.
func (s Summary) Fill(r *journal.RunRecord) {
	r.Start = s.Start
	r.End = s.End
	r.Days = s.Days
	r.InitialCapital = s.InitialNAV
	r.FinalNAV = s.FinalNAV
	r.TotalReturn = s.TotalReturn
	r.CAGR = s.CAGR
	r.MaxDrawdown = s.MaxDrawdown
	r.AvgExposure = s.AvgExposure
	r.AvgPositions = s.AvgPositions
}

func Print(w io.Writer, s Summary) {
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	if s.Days == 0 {
		fmt.Fprintln(w, "No trading days in range.")
		return
	}
	fmt.Fprintf(w, "Start:         %s\n", s.Start.Format("2006-01-02"))
	fmt.Fprintf(w, "End:           %s\n", s.End.Format("2006-01-02"))
	fmt.Fprintf(w, "Trading Days:  %d (%.2f years)\n", s.Days, s.Years)
	fmt.Fprintf(w, "Initial NAV:   %.0f\n", s.InitialNAV)
	fmt.Fprintf(w, "Final NAV:     %.0f\n", s.FinalNAV)
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.TotalReturn*100)
	fmt.Fprintf(w, "CAGR:          %.2f%%\n", s.CAGR*100)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "Avg Exposure:  %.2f%%\n", s.AvgExposure*100)
	fmt.Fprintf(w, "Avg Positions: %.1f\n", s.AvgPositions)
}

// PrintRun writes the full boxed report for a journaled run.
func PrintRun(w io.Writer, r journal.RunRecord) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	if !r.Created.IsZero() {
		fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	fmt.Fprintf(w, "Fills:         %d\n", r.Fills)
	if r.Halted {
		fmt.Fprintln(w, "Halted:        NAV fell to zero or below")
	}
	fmt.Fprintln(w)

	Print(w, Summary{
		Start:        r.Start,
		End:          r.End,
		Days:         r.Days,
		Years:        r.End.Sub(r.Start).Hours() / 24 / daysPerYear,
		InitialNAV:   r.InitialCapital,
		FinalNAV:     r.FinalNAV,
		TotalReturn:  r.TotalReturn,
		CAGR:         r.CAGR,
		MaxDrawdown:  r.MaxDrawdown,
		AvgExposure:  r.AvgExposure,
		AvgPositions: r.AvgPositions,
	})

	if r.OrgPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}

// WriteNAVCSV writes the history as date,nav,cash,exposure,positions rows,
// the input expected by plotting scripts.
func WriteNAVCSV(w io.Writer, history []portfolio.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "nav", "cash", "exposure", "positions"}); err != nil {
		return err
	}
	for _, h := range history {
		if err := cw.Write([]string{
			h.Date.Format("2006-01-02"),
			strconv.FormatFloat(h.NAV, 'f', 2, 64),
			strconv.FormatFloat(h.Cash, 'f', 2, 64),
			strconv.FormatFloat(h.Exposure, 'f', 6, 64),
			strconv.Itoa(h.Positions),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
