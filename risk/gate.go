package risk

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/rustyeddy/stratlab/market"
	"github.com/rustyeddy/stratlab/sim"
)

// Config holds the portfolio-level policy knobs. These are operator
// configuration, not per-order data, and are validated once at run start.
type Config struct {
	// MaxOpen caps concurrently open positions.
	MaxOpen int

	// RiskPerTrade is the fraction of current equity risked per trade.
	RiskPerTrade float64

	// DailyStopR halts admission once the day's realized R-multiple falls to
	// or below this threshold (a negative number, e.g. -2.0). Zero disables.
	DailyStopR float64

	// OnePerTickerDay admits at most one trade per ticker per trading day.
	// Candidates arrive sorted, so the first (highest-priority) one wins.
	OnePerTickerDay bool
}

// Validate fails fast: a bad policy aborts the run before any order is
// processed.
func (c Config) Validate() error {
	if c.MaxOpen <= 0 {
		return fmt.Errorf("gate config: max_open must be positive, got %d", c.MaxOpen)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade >= 1 {
		return fmt.Errorf("gate config: risk_per_trade must be in (0,1), got %g", c.RiskPerTrade)
	}
	if c.DailyStopR > 0 {
		return fmt.Errorf("gate config: daily_stop_r must be zero or negative, got %g", c.DailyStopR)
	}
	return nil
}

// Decision is the gate's verdict on one candidate order.
type Decision struct {
	Admitted bool
	Block    sim.BlockReason
	Shares   int
}

// Gate applies admission control and position sizing to each candidate order
// before it reaches the simulator. It is the only writer of the portfolio
// State it wraps.
type Gate struct {
	cfg   Config
	state *State
	log   *zap.Logger
}

// NewGate validates the policy and binds it to a portfolio state. A nil
// logger means silence (the engine as a library never prints).
func NewGate(cfg Config, state *State, log *zap.Logger) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("gate: state is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{cfg: cfg, state: state, log: log}, nil
}

// State exposes the wrapped portfolio state, read-only by convention.
func (g *Gate) State() *State { return g.state }

// Admit decides whether the order may trade and at what size. A rejection is
// a Decision carrying a block reason, never an error: blocked orders are
// frequent, expected, and must stay auditable.
//
// On admission the order immediately occupies a concurrency slot, so later
// candidates see it even though its exit is not yet known.
func (g *Gate) Admit(o sim.OrderSpec) Decision {
	if o.Volatility <= 0 || o.ReferencePrice <= 0 {
		return g.reject(o, sim.BlockMissingFeatures)
	}

	if g.state.OpenCount(o.SignalTime) >= g.cfg.MaxOpen {
		return g.reject(o, sim.BlockMaxOpen)
	}

	if g.cfg.DailyStopR < 0 && g.state.DayRealizedR(o.SignalTime) <= g.cfg.DailyStopR {
		return g.reject(o, sim.BlockDailyStop)
	}

	if g.cfg.OnePerTickerDay && g.state.TickerDayTaken(o.Ticker, o.SignalTime) {
		return g.reject(o, sim.BlockTickerDay)
	}

	shares := g.size(o)
	if shares <= 0 {
		return g.reject(o, sim.BlockSizeZero)
	}

	g.state.Reserve(o.Ref, o.Ticker, o.SignalTime)
	if g.cfg.OnePerTickerDay {
		g.state.MarkTickerDay(o.Ticker, o.SignalTime)
	}

	g.log.Debug("order admitted",
		zap.String("ref", o.Ref),
		zap.String("ticker", o.Ticker),
		zap.Int("shares", shares),
	)
	return Decision{Admitted: true, Shares: shares}
}

// Finalize feeds a simulated result back into the portfolio. Equity and the
// daily buckets move here, once, at the trade's exit; an order that never
// entered the market just releases its slot.
func (g *Gate) Finalize(res sim.TradeResult) {
	if !res.Filled() {
		g.state.Release(res.OrderRef)
		return
	}
	g.state.Settle(res.OrderRef, res.ExitTime, res.PnL, res.RMultiple)

	g.log.Debug("trade settled",
		zap.String("ref", res.OrderRef),
		zap.String("ticker", res.Ticker),
		zap.String("reason", string(res.ExitReason)),
		zap.Float64("pnl", res.PnL),
		zap.Float64("r", res.RMultiple),
		zap.Float64("equity", g.state.Equity),
	)
}

// size converts the risk budget into whole shares:
// floor(equity * risk_per_trade / stop_distance_per_share).
func (g *Gate) size(o sim.OrderSpec) int {
	riskCash := g.state.Equity * g.cfg.RiskPerTrade
	return int(math.Floor(riskCash / o.StopDistance()))
}

func (g *Gate) reject(o sim.OrderSpec, reason sim.BlockReason) Decision {
	g.log.Debug("order blocked",
		zap.String("ref", o.Ref),
		zap.String("ticker", o.Ticker),
		zap.String("day", market.DayOf(o.SignalTime).Format("2006-01-02")),
		zap.String("reason", string(reason)),
	)
	return Decision{Block: reason}
}
