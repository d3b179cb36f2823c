package journal

import (
	"time"

	"github.com/rustyeddy/stratlab/sim"
)

// EquityRow is one trading day of the equity curve.
type EquityRow struct {
	Date     time.Time
	Equity   float64
	PnL      float64
	Drawdown float64
}

// Journal persists the run's two ledgers: one trade row per candidate order
// (blocked and no-data included) and one equity row per trading day.
type Journal interface {
	RecordTrade(sim.TradeResult) error
	RecordEquity(EquityRow) error
	Close() error
}

// Nop discards everything; useful when the caller only wants in-memory
// results.
type Nop struct{}

func (Nop) RecordTrade(sim.TradeResult) error { return nil }
func (Nop) RecordEquity(EquityRow) error      { return nil }
func (Nop) Close() error                      { return nil }
