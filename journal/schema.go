package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	order_ref TEXT PRIMARY KEY,
	ticker TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_time DATETIME,
	entry_price REAL NOT NULL,
	exit_time DATETIME,
	exit_price REAL NOT NULL,
	exit_reason TEXT NOT NULL,
	block_reason TEXT NOT NULL DEFAULT '',
	shares INTEGER NOT NULL,
	pnl REAL NOT NULL,
	r_multiple REAL NOT NULL,
	stop_distance REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	date DATETIME PRIMARY KEY,
	equity_end REAL NOT NULL,
	pnl_day REAL NOT NULL,
	drawdown REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_trades_exit_reason ON trades(exit_reason);
`
