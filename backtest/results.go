package backtest

import (
	"sort"
	"time"

	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/market"
	"github.com/rustyeddy/stratlab/sim"
)

// Result is everything one batch run produces: the full trade ledger (one
// row per input order), the daily equity curve, and derived summary stats.
type Result struct {
	Trades  []sim.TradeResult
	Curve   []journal.EquityRow
	Summary Summary
}

// Summary holds the headline numbers downstream dashboards care about.
type Summary struct {
	Orders int
	Filled int
	Wins   int
	Losses int
	NoData int

	Blocked   int
	BlockedBy map[sim.BlockReason]int

	NetPnL       float64
	EndEquity    float64
	WinRate      float64
	ProfitFactor float64
	MaxDrawdown  float64
}

// buildCurve groups realized PnL by exit date and tracks the running maximum
// for drawdown.
func buildCurve(initialCapital float64, trades []sim.TradeResult) []journal.EquityRow {
	byDay := make(map[time.Time]float64)
	for _, tr := range trades {
		if !tr.Filled() {
			continue
		}
		byDay[market.DayOf(tr.ExitTime)] += tr.PnL
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	equity := initialCapital
	high := initialCapital
	curve := make([]journal.EquityRow, 0, len(days))
	for _, d := range days {
		equity += byDay[d]
		if equity > high {
			high = equity
		}
		dd := 0.0
		if high > 0 {
			dd = (high - equity) / high
		}
		curve = append(curve, journal.EquityRow{
			Date:     d,
			Equity:   equity,
			PnL:      byDay[d],
			Drawdown: dd,
		})
	}
	return curve
}

func summarize(initialCapital float64, trades []sim.TradeResult, curve []journal.EquityRow) Summary {
	s := Summary{
		Orders:    len(trades),
		BlockedBy: make(map[sim.BlockReason]int),
		EndEquity: initialCapital,
	}

	grossProfit := 0.0
	grossLoss := 0.0

	for _, tr := range trades {
		switch tr.ExitReason {
		case sim.ExitBlocked:
			s.Blocked++
			s.BlockedBy[tr.BlockReason]++
			continue
		case sim.ExitNoData:
			s.NoData++
			continue
		}

		s.Filled++
		s.NetPnL += tr.PnL
		switch {
		case tr.PnL > 0:
			s.Wins++
			grossProfit += tr.PnL
		case tr.PnL < 0:
			s.Losses++
			grossLoss -= tr.PnL
		}
	}

	s.EndEquity = initialCapital + s.NetPnL
	if s.Filled > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Filled)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	}
	for _, row := range curve {
		if row.Drawdown > s.MaxDrawdown {
			s.MaxDrawdown = row.Drawdown
		}
	}
	return s
}
