package journal

import (
	"encoding/csv"
	"os"
	"strconv"
)

var (
	navHeader  = []string{"run_id", "date", "nav", "cash", "exposure", "positions"}
	fillHeader = []string{"run_id", "date", "instrument", "side", "quantity", "price", "amount", "stop_loss", "reason"}
)

type CSVJournal struct {
	nav    *csv.Writer
	fills  *csv.Writer
	nf, ff *os.File
}

func NewCSV(navPath, fillsPath string) (*CSVJournal, error) {
	nf, err := os.Create(navPath)
	if err != nil {
		return nil, err
	}
	ff, err := os.Create(fillsPath)
	if err != nil {
		nf.Close()
		return nil, err
	}

	nw := csv.NewWriter(nf)
	fw := csv.NewWriter(ff)

	j := &CSVJournal{nav: nw, fills: fw, nf: nf, ff: ff}
	if err := j.writeRow(nw, navHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.writeRow(fw, fillHeader); err != nil {
		j.Close()
		return nil, err
	}

	return j, nil
}

func (j *CSVJournal) RecordFill(r FillRecord) error {
	return j.writeRow(j.fills, []string{
		r.RunID,
		r.Date.Format("2006-01-02"),
		r.Instrument,
		r.Side,
		strconv.FormatInt(r.Quantity, 10),
		f(r.Price),
		f(r.Amount),
		f(r.StopLoss),
		r.Reason,
	})
}

func (j *CSVJournal) RecordNAV(r NAVRecord) error {
	return j.writeRow(j.nav, []string{
		r.RunID,
		r.Date.Format("2006-01-02"),
		f(r.NAV),
		f(r.Cash),
		f(r.Exposure),
		strconv.Itoa(r.Positions),
	})
}

func (j *CSVJournal) writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	j.nav.Flush()
	if err := j.nav.Error(); err != nil {
		return err
	}
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}

	if err := j.nf.Close(); err != nil {
		return err
	}
	if err := j.ff.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
