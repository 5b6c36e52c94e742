package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	dataset TEXT NOT NULL,
	config TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	days INTEGER NOT NULL,
	initial_capital REAL NOT NULL,
	final_nav REAL NOT NULL,
	total_return REAL NOT NULL,
	cagr REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	avg_exposure REAL NOT NULL,
	avg_positions REAL NOT NULL,
	fills INTEGER NOT NULL,
	halted INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS nav (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	nav REAL NOT NULL,
	cash REAL NOT NULL,
	exposure REAL NOT NULL,
	positions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fills (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	amount REAL NOT NULL,
	stop_loss REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nav_run_date ON nav(run_id, date);
CREATE INDEX IF NOT EXISTS idx_fills_run_date ON fills(run_id, date);
`
