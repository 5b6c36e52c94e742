package journal

import (
	"database/sql"
	"fmt"
	"time"
)

const runColumns = `run_id, created, strategy, dataset, config, start_date, end_date, days,
	initial_capital, final_nav, total_return, cagr, max_drawdown,
	avg_exposure, avg_positions, fills, halted`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		rec RunRecord
		cfg string
	)
	err := s.Scan(
		&rec.RunID,
		&rec.Created,
		&rec.Strategy,
		&rec.Dataset,
		&cfg,
		&rec.Start,
		&rec.End,
		&rec.Days,
		&rec.InitialCapital,
		&rec.FinalNAV,
		&rec.TotalReturn,
		&rec.CAGR,
		&rec.MaxDrawdown,
		&rec.AvgExposure,
		&rec.AvgPositions,
		&rec.Fills,
		&rec.Halted,
	)
	rec.Config = []byte(cfg)
	return rec, err
}

// GetRun returns a single run summary by ID.
func (j *SQLiteJournal) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns every run, oldest first.
func (j *SQLiteJournal) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created ASC, run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListNAV returns the NAV history of a run in date order.
func (j *SQLiteJournal) ListNAV(runID string) ([]NAVRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, date, nav, cash, exposure, positions
		FROM nav
		WHERE run_id = ?
		ORDER BY date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NAVRecord
	for rows.Next() {
		var rec NAVRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.Date,
			&rec.NAV,
			&rec.Cash,
			&rec.Exposure,
			&rec.Positions,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFillsBetween returns a run's fills dated within [start, end).
func (j *SQLiteJournal) ListFillsBetween(runID string, start, end time.Time) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, date, instrument, side, quantity, price, amount, stop_loss, reason
		FROM fills
		WHERE run_id = ? AND date >= ? AND date < ?
		ORDER BY date ASC, rowid ASC`, runID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var rec FillRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.Date,
			&rec.Instrument,
			&rec.Side,
			&rec.Quantity,
			&rec.Price,
			&rec.Amount,
			&rec.StopLoss,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
