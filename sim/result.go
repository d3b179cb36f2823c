package sim

import "time"

// ExitReason tags the terminal state of a trade result.
type ExitReason string

const (
	ExitTP      ExitReason = "TP"
	ExitSL      ExitReason = "SL"
	ExitTrailSL ExitReason = "TRAIL_SL"
	ExitTime    ExitReason = "TIME_EXIT"
	ExitEOD     ExitReason = "EOD_CLOSE"
	ExitNoData  ExitReason = "NO_DATA"
	ExitBlocked ExitReason = "BLOCKED"
)

// BlockReason explains why the portfolio gate refused an order. Rejections
// are expected and frequent; they are results, never errors.
type BlockReason string

const (
	BlockMaxOpen         BlockReason = "MAX_OPEN"
	BlockDailyStop       BlockReason = "DAILY_STOP"
	BlockSizeZero        BlockReason = "SIZE_ZERO"
	BlockMissingFeatures BlockReason = "MISSING_FEATURES"
	BlockNoData          BlockReason = "NO_DATA"
	BlockTickerDay       BlockReason = "TICKER_DAY"
)

// TradeResult is the append-only outcome of one candidate order. Every input
// order produces exactly one, blocked and no-data included, so a batch run is
// fully auditable.
type TradeResult struct {
	OrderRef string
	Ticker   string
	Side     Side

	EntryTime  time.Time
	EntryPrice float64
	ExitTime   time.Time
	ExitPrice  float64

	ExitReason  ExitReason
	BlockReason BlockReason

	Shares int
	PnL    float64

	// StopDistance is the per-share risk fixed at entry; RMultiple is
	// pnl-per-share divided by it.
	StopDistance float64
	RMultiple    float64
}

// Filled reports whether the trade actually entered the market.
func (r TradeResult) Filled() bool {
	switch r.ExitReason {
	case ExitBlocked, ExitNoData:
		return false
	}
	return true
}

// Blocked builds the audit record for a gate rejection.
func Blocked(o OrderSpec, reason BlockReason) TradeResult {
	return TradeResult{
		OrderRef:    o.Ref,
		Ticker:      o.Ticker,
		Side:        o.Side,
		ExitReason:  ExitBlocked,
		BlockReason: reason,
	}
}

// NoData builds the terminal record for an order whose ticker had no usable
// bars at or after its signal time.
func NoData(o OrderSpec) TradeResult {
	return TradeResult{
		OrderRef:   o.Ref,
		Ticker:     o.Ticker,
		Side:       o.Side,
		ExitReason: ExitNoData,
	}
}
