// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	direction TEXT NOT NULL,
	size REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	gross_pnl REAL NOT NULL,
	fees REAL NOT NULL,
	net_pnl REAL NOT NULL,
	return_pct REAL NOT NULL DEFAULT 0,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	mark_price REAL NOT NULL,
	cash REAL NOT NULL,
	position_size REAL NOT NULL,
	equity REAL NOT NULL,
	side TEXT NOT NULL,
	malformed INTEGER NOT NULL DEFAULT 0,
	unrealized_pnl REAL NOT NULL DEFAULT 0,
	unrealized_pnl_pct REAL NOT NULL DEFAULT 0,
	entry_price REAL,
	take_profit REAL,
	stop_loss REAL,
	exit_price REAL,
	exit_reason TEXT NOT NULL DEFAULT '',
	realized_pnl REAL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	dataset TEXT NOT NULL,
	signals TEXT NOT NULL,
	strategy TEXT NOT NULL,
	params TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	bars INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	start_equity REAL NOT NULL,
	final_equity REAL NOT NULL,
	net_profit REAL NOT NULL,
	total_return REAL,
	max_drawdown REAL,
	sharpe REAL,
	profit_factor REAL,
	metrics TEXT NOT NULL,
	stats TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);
`
