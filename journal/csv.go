package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/stratlab/sim"
)

// CSV writes the trade ledger and equity curve as two flat files for the
// downstream reporting layer.
type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSV{trades: csv.NewWriter(tf), equity: csv.NewWriter(ef), tf: tf, ef: ef}
	if err := j.writeHeaders(); err != nil {
		tf.Close()
		ef.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) writeHeaders() error {
	if err := j.trades.Write([]string{
		"order_ref", "ticker", "side",
		"entry_time", "entry_price", "exit_time", "exit_price",
		"exit_reason", "block_reason",
		"shares", "pnl", "r_multiple", "stop_distance",
	}); err != nil {
		return err
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}

	if err := j.equity.Write([]string{"date", "equity_end", "pnl_day", "drawdown"}); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) RecordTrade(r sim.TradeResult) error {
	if err := j.trades.Write([]string{
		r.OrderRef,
		r.Ticker,
		r.Side.String(),
		ts(r.EntryTime),
		f(r.EntryPrice),
		ts(r.ExitTime),
		f(r.ExitPrice),
		string(r.ExitReason),
		string(r.BlockReason),
		strconv.Itoa(r.Shares),
		f(r.PnL),
		f(r.RMultiple),
		f(r.StopDistance),
	}); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquityRow) error {
	if err := j.equity.Write([]string{
		e.Date.Format("2006-01-02"),
		f(e.Equity),
		f(e.PnL),
		f(e.Drawdown),
	}); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// ts renders a timestamp, or empty for trades that never entered the market.
func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
