package journal

import (
	"database/sql"
	"time"

	"github.com/rustyeddy/stratlab/sim"
)

// nullTime maps the zero time to NULL so "never entered" stays distinguishable
// in SQL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

const tradeColumns = `order_ref, ticker, side, entry_time, entry_price, exit_time, exit_price,
	exit_reason, block_reason, shares, pnl, r_multiple, stop_distance`

func scanTrade(rows *sql.Rows) (sim.TradeResult, error) {
	var (
		r         sim.TradeResult
		side      string
		entryTime sql.NullTime
		exitTime  sql.NullTime
		exitR     string
		blockR    string
	)
	err := rows.Scan(
		&r.OrderRef, &r.Ticker, &side, &entryTime, &r.EntryPrice, &exitTime, &r.ExitPrice,
		&exitR, &blockR, &r.Shares, &r.PnL, &r.RMultiple, &r.StopDistance,
	)
	if err != nil {
		return sim.TradeResult{}, err
	}
	if r.Side, err = sim.ParseSide(side); err != nil {
		return sim.TradeResult{}, err
	}
	if entryTime.Valid {
		r.EntryTime = entryTime.Time
	}
	if exitTime.Valid {
		r.ExitTime = exitTime.Time
	}
	r.ExitReason = sim.ExitReason(exitR)
	r.BlockReason = sim.BlockReason(blockR)
	return r, nil
}

func (j *SQLite) collectTrades(query string, args ...any) ([]sim.TradeResult, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.TradeResult
	for rows.Next() {
		r, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTradesClosedBetween returns filled trades whose exit_time is within
// [start, end), ordered by exit time.
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]sim.TradeResult, error) {
	return j.collectTrades(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE exit_time IS NOT NULL AND exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, order_ref ASC`, start, end)
}

// ListBlocked returns the blocked-trade ledger: every candidate the gate
// refused, in admission order.
func (j *SQLite) ListBlocked() ([]sim.TradeResult, error) {
	return j.collectTrades(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE exit_reason = ?
		ORDER BY order_ref ASC`, string(sim.ExitBlocked))
}

// CountBlockedByReason aggregates the blocked ledger for auditability.
func (j *SQLite) CountBlockedByReason() (map[sim.BlockReason]int, error) {
	rows, err := j.db.Query(`
		SELECT block_reason, COUNT(*)
		FROM trades
		WHERE exit_reason = ?
		GROUP BY block_reason`, string(sim.ExitBlocked))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[sim.BlockReason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[sim.BlockReason(reason)] = n
	}
	return out, rows.Err()
}

// ListEquity returns the full equity curve in date order.
func (j *SQLite) ListEquity() ([]EquityRow, error) {
	rows, err := j.db.Query(`
		SELECT date, equity_end, pnl_day, drawdown
		FROM equity
		ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRow
	for rows.Next() {
		var e EquityRow
		if err := rows.Scan(&e.Date, &e.Equity, &e.PnL, &e.Drawdown); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
