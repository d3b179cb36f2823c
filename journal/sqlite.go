package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/stratlab/sim"
)

// SQLite persists the ledgers in a single sqlite file, which keeps whole
// research runs queryable after the fact.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(r sim.TradeResult) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(order_ref, ticker, side, entry_time, entry_price, exit_time, exit_price,
		 exit_reason, block_reason, shares, pnl, r_multiple, stop_distance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.OrderRef, r.Ticker, r.Side.String(),
		nullTime(r.EntryTime), r.EntryPrice, nullTime(r.ExitTime), r.ExitPrice,
		string(r.ExitReason), string(r.BlockReason),
		r.Shares, r.PnL, r.RMultiple, r.StopDistance,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquityRow) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (date, equity_end, pnl_day, drawdown)
		VALUES (?, ?, ?, ?)`,
		e.Date, e.Equity, e.PnL, e.Drawdown,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
