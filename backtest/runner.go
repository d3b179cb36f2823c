package backtest

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/market"
	"github.com/rustyeddy/stratlab/pkg/id"
	"github.com/rustyeddy/stratlab/risk"
	"github.com/rustyeddy/stratlab/sim"
)

// Runner drives a batch of candidate orders through the portfolio gate and
// the execution simulator in strict chronological order.
//
// Admission decisions are sequential by design: each one reads portfolio
// state mutated by earlier trades, so this loop is the single logical thread
// of control over that state. Everything is deterministic; two runs over the
// same inputs produce identical ledgers.
type Runner struct {
	Gate    *risk.Gate
	Store   *market.Store
	Journal journal.Journal
	Log     *zap.Logger

	// Vol, when set, backfills candidates arriving without volatility or
	// reference-price features from the as-of bar history.
	Vol *market.VolContext
}

// Run processes every order and returns one TradeResult per input, blocked
// and no-data included. Only configuration and invariant violations abort
// the run.
func (r *Runner) Run(ctx context.Context, orders []sim.OrderSpec) (Result, error) {
	if r.Gate == nil {
		return Result{}, fmt.Errorf("backtest: Gate is required")
	}
	if r.Store == nil {
		return Result{}, fmt.Errorf("backtest: Store is required")
	}
	jnl := r.Journal
	if jnl == nil {
		jnl = journal.Nop{}
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	initialCapital := r.Gate.State().Equity

	// Chronological admission order: signal time, then ticker for
	// determinism, then highest probability first so the per-ticker/day cap
	// keeps the strongest candidate.
	ordered := make([]sim.OrderSpec, len(orders))
	copy(ordered, orders)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.SignalTime.Equal(b.SignalTime) {
			return a.SignalTime.Before(b.SignalTime)
		}
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		return a.Probability > b.Probability
	})

	results := make([]sim.TradeResult, 0, len(ordered))

	for i := range ordered {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		o := ordered[i]
		if o.Ref == "" {
			o.Ref = id.New()
		}

		res, err := r.process(o)
		if err != nil {
			return Result{}, err
		}

		if err := jnl.RecordTrade(res); err != nil {
			return Result{}, fmt.Errorf("backtest: record trade %s: %w", res.OrderRef, err)
		}
		results = append(results, res)
	}

	curve := buildCurve(initialCapital, results)
	for _, row := range curve {
		if err := jnl.RecordEquity(row); err != nil {
			return Result{}, fmt.Errorf("backtest: record equity %s: %w", row.Date.Format("2006-01-02"), err)
		}
	}

	summary := summarize(initialCapital, results, curve)
	log.Info("batch run complete",
		zap.Int("orders", summary.Orders),
		zap.Int("filled", summary.Filled),
		zap.Int("blocked", summary.Blocked),
		zap.Float64("net_pnl", summary.NetPnL),
		zap.Float64("end_equity", summary.EndEquity),
		zap.Float64("max_drawdown", summary.MaxDrawdown),
	)

	return Result{Trades: results, Curve: curve, Summary: summary}, nil
}

// process runs one order through gate -> simulator -> gate.
func (r *Runner) process(o sim.OrderSpec) (sim.TradeResult, error) {
	o = r.enrich(o)

	decision := r.Gate.Admit(o)
	if !decision.Admitted {
		return sim.Blocked(o, decision.Block), nil
	}

	series, ok := r.Store.Get(o.Ticker)
	if !ok {
		res := sim.NoData(o)
		r.Gate.Finalize(res)
		return res, nil
	}

	res, err := sim.Simulate(o, decision.Shares, series.Bars)
	if err != nil {
		return sim.TradeResult{}, err
	}
	r.Gate.Finalize(res)
	return res, nil
}

// enrich fills missing volatility and reference-price features from the
// as-of lookup, using only bars at or before the signal time. A failed
// lookup leaves the order untouched and the gate rejects it as
// MISSING_FEATURES.
func (r *Runner) enrich(o sim.OrderSpec) sim.OrderSpec {
	if r.Vol == nil || (o.Volatility > 0 && o.ReferencePrice > 0) {
		return o
	}

	vp, ok := r.Vol.AsOf(o.Ticker, o.SignalTime)
	if !ok {
		return o
	}
	if o.Volatility <= 0 {
		o.Volatility = vp.ATR
	}
	if o.ReferencePrice <= 0 {
		o.ReferencePrice = vp.RefClose
	}
	return o
}
