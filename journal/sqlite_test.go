package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','nav','fills')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["nav"])
	assert.True(t, found["fills"])
}

func TestSQLiteSchemaIdempotent(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	j2, err := NewSQLite(path)
	require.NoError(t, err)
	assert.NoError(t, j2.Close())
}

func TestSQLiteRecordFill(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordFill(FillRecord{
		RunID:      "R1",
		Date:       day,
		Instrument: "000660",
		Side:       "SELL",
		Quantity:   7,
		Price:      150000,
		Amount:     1048425,
		Reason:     ReasonStopLoss,
	}))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		instrument string
		side       string
		qty        int64
		price      float64
		amount     float64
		reason     string
	)
	err = db.QueryRow(`SELECT instrument, side, quantity, price, amount, reason FROM fills WHERE run_id = ?`, "R1").
		Scan(&instrument, &side, &qty, &price, &amount, &reason)
	require.NoError(t, err)

	assert.Equal(t, "000660", instrument)
	assert.Equal(t, "SELL", side)
	assert.Equal(t, int64(7), qty)
	assert.InDelta(t, 150000, price, 1e-9)
	assert.InDelta(t, 1048425, amount, 1e-9)
	assert.Equal(t, ReasonStopLoss, reason)
}

func TestSQLiteRecordNAV(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordNAV(NAVRecord{
		RunID:     "R1",
		Date:      day,
		NAV:       101.5,
		Cash:      40.25,
		Exposure:  0.6034,
		Positions: 3,
	}))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		nav, cash, exposure float64
		positions           int
	)
	err = db.QueryRow(`SELECT nav, cash, exposure, positions FROM nav WHERE run_id = ?`, "R1").
		Scan(&nav, &cash, &exposure, &positions)
	require.NoError(t, err)

	assert.InDelta(t, 101.5, nav, 1e-9)
	assert.InDelta(t, 40.25, cash, 1e-9)
	assert.InDelta(t, 0.6034, exposure, 1e-9)
	assert.Equal(t, 3, positions)
}
