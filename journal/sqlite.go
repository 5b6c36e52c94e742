package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(run_id, date, instrument, side, quantity, price, amount, stop_loss, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Date, f.Instrument, f.Side, f.Quantity,
		f.Price, f.Amount, f.StopLoss, f.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordNAV(n NAVRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO nav
		(run_id, date, nav, cash, exposure, positions)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.RunID, n.Date, n.NAV, n.Cash, n.Exposure, n.Positions,
	)
	return err
}

// RecordRun inserts or replaces the summary row of a run.
func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, strategy, dataset, config, start_date, end_date, days,
		 initial_capital, final_nav, total_return, cagr, max_drawdown,
		 avg_exposure, avg_positions, fills, halted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Dataset, string(r.Config), r.Start, r.End, r.Days,
		r.InitialCapital, r.FinalNAV, r.TotalReturn, r.CAGR, r.MaxDrawdown,
		r.AvgExposure, r.AvgPositions, r.Fills, r.Halted,
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
