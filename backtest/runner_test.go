package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/market"
	"github.com/rustyeddy/stratlab/risk"
	"github.com/rustyeddy/stratlab/sim"
)

var day0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func at(day int) time.Time { return day0.Add(time.Duration(day) * 24 * time.Hour) }

func daily(ticker string, day int, o, h, l, c float64) market.Bar {
	return market.Bar{Ticker: ticker, Time: at(day), Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

func order(ref, ticker string, day int) sim.OrderSpec {
	return sim.OrderSpec{
		Ref:            ref,
		Ticker:         ticker,
		Side:           sim.Buy,
		SignalTime:     at(day),
		ReferencePrice: 100,
		Volatility:     2,
		StopMult:       1,
		TargetMult:     1.5,
		MaxHoldingBars: 10,
	}
}

func newStore(t *testing.T, series ...*market.Series) *market.Store {
	t.Helper()
	st := market.NewStore()
	for _, s := range series {
		require.NoError(t, st.Add(s))
	}
	return st
}

func newRunner(t *testing.T, store *market.Store, maxOpen int, jnl journal.Journal) *Runner {
	t.Helper()
	state, err := risk.NewState(10000)
	require.NoError(t, err)
	gate, err := risk.NewGate(risk.Config{MaxOpen: maxOpen, RiskPerTrade: 0.01}, state, nil)
	require.NoError(t, err)
	return &Runner{Gate: gate, Store: store, Journal: jnl}
}

// winLossStore: AAAA hits its target on the bar after entry, BBBB hits its
// stop. With 10000 equity and 1% risk both trades size to 50 shares at entry,
// so the win is +150 and the loss is -100.
func winLossStore(t *testing.T) *market.Store {
	t.Helper()
	return newStore(t,
		&market.Series{Ticker: "AAAA", Bars: []market.Bar{
			daily("AAAA", 0, 100, 101, 99, 100),
			daily("AAAA", 1, 101, 104, 100, 103), // target 103 reached
		}},
		&market.Series{Ticker: "BBBB", Bars: []market.Bar{
			daily("BBBB", 2, 100, 101, 99, 100),
			daily("BBBB", 3, 99, 100, 97, 98), // stop 98 reached
		}},
	)
}

// recorder is an in-memory Journal capturing everything the runner writes.
type recorder struct {
	trades []sim.TradeResult
	equity []journal.EquityRow
}

func (r *recorder) RecordTrade(tr sim.TradeResult) error  { r.trades = append(r.trades, tr); return nil }
func (r *recorder) RecordEquity(e journal.EquityRow) error { r.equity = append(r.equity, e); return nil }
func (r *recorder) Close() error                          { return nil }

func TestRunner_RequiresGateAndStore(t *testing.T) {
	t.Parallel()

	_, err := (&Runner{}).Run(context.Background(), nil)
	assert.Error(t, err)

	r := newRunner(t, newStore(t), 1, nil)
	r.Gate = nil
	_, err = r.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunner_WinLossBatch(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := newRunner(t, winLossStore(t), 5, rec)

	res, err := r.Run(context.Background(), []sim.OrderSpec{
		order("W", "AAAA", 0),
		order("L", "BBBB", 2),
	})
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)

	win, lose := res.Trades[0], res.Trades[1]
	assert.Equal(t, "W", win.OrderRef)
	assert.Equal(t, sim.ExitTP, win.ExitReason)
	assert.InDelta(t, 150.0, win.PnL, 1e-9)

	assert.Equal(t, "L", lose.OrderRef)
	assert.Equal(t, sim.ExitSL, lose.ExitReason)
	assert.InDelta(t, -100.0, lose.PnL, 1e-9)

	s := res.Summary
	assert.Equal(t, 2, s.Orders)
	assert.Equal(t, 2, s.Filled)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, 50.0, s.NetPnL, 1e-9)
	assert.InDelta(t, 10050.0, s.EndEquity, 1e-9)
	assert.InDelta(t, 0.5, s.WinRate, 1e-9)
	assert.InDelta(t, 1.5, s.ProfitFactor, 1e-9)

	// Equity curve: +150 on the win's exit day, -100 on the loss's.
	require.Len(t, res.Curve, 2)
	assert.True(t, res.Curve[0].Date.Equal(market.DayOf(at(1))))
	assert.InDelta(t, 10150.0, res.Curve[0].Equity, 1e-9)
	assert.InDelta(t, 0.0, res.Curve[0].Drawdown, 1e-9)
	assert.InDelta(t, 10050.0, res.Curve[1].Equity, 1e-9)
	assert.InDelta(t, 100.0/10150.0, res.Curve[1].Drawdown, 1e-9)
	assert.InDelta(t, 100.0/10150.0, s.MaxDrawdown, 1e-9)

	// Everything landed in the journal.
	assert.Len(t, rec.trades, 2)
	assert.Len(t, rec.equity, 2)
}

func TestRunner_OneResultPerOrder(t *testing.T) {
	t.Parallel()

	r := newRunner(t, winLossStore(t), 5, nil)

	bad := order("F", "AAAA", 0)
	bad.Volatility = 0 // gate blocks before the simulator sees it

	res, err := r.Run(context.Background(), []sim.OrderSpec{
		order("W", "AAAA", 0),
		bad,
		order("M", "MISSING", 1),
	})
	require.NoError(t, err)
	require.Len(t, res.Trades, 3)

	byRef := map[string]sim.TradeResult{}
	for _, tr := range res.Trades {
		byRef[tr.OrderRef] = tr
	}
	assert.Equal(t, sim.ExitTP, byRef["W"].ExitReason)
	assert.Equal(t, sim.ExitBlocked, byRef["F"].ExitReason)
	assert.Equal(t, sim.BlockMissingFeatures, byRef["F"].BlockReason)
	assert.Equal(t, sim.ExitNoData, byRef["M"].ExitReason)

	s := res.Summary
	assert.Equal(t, 3, s.Orders)
	assert.Equal(t, 1, s.Filled)
	assert.Equal(t, 1, s.Blocked)
	assert.Equal(t, 1, s.NoData)
	assert.Equal(t, 1, s.BlockedBy[sim.BlockMissingFeatures])
}

func TestRunner_ChronologicalOrder(t *testing.T) {
	t.Parallel()

	r := newRunner(t, winLossStore(t), 5, nil)

	// Passed newest-first; results must come back oldest-first.
	res, err := r.Run(context.Background(), []sim.OrderSpec{
		order("L", "BBBB", 2),
		order("W", "AAAA", 0),
	})
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, "W", res.Trades[0].OrderRef)
	assert.Equal(t, "L", res.Trades[1].OrderRef)
}

func TestRunner_MaxOpenAcrossDays(t *testing.T) {
	t.Parallel()

	// AAAA drifts sideways through day 5, occupying its slot the whole time.
	flat := make([]market.Bar, 6)
	for i := range flat {
		flat[i] = daily("AAAA", i, 100, 101, 99, 100)
	}
	store := newStore(t,
		&market.Series{Ticker: "AAAA", Bars: flat},
		&market.Series{Ticker: "BBBB", Bars: []market.Bar{
			daily("BBBB", 1, 100, 101, 99, 100),
			daily("BBBB", 6, 100, 101, 99, 100),
		}},
	)
	r := newRunner(t, store, 1, nil)

	res, err := r.Run(context.Background(), []sim.OrderSpec{
		order("A", "AAAA", 0),
		order("B", "BBBB", 1), // while A is still open
		order("C", "BBBB", 6), // after A's exit
	})
	require.NoError(t, err)
	require.Len(t, res.Trades, 3)

	byRef := map[string]sim.TradeResult{}
	for _, tr := range res.Trades {
		byRef[tr.OrderRef] = tr
	}
	assert.Equal(t, sim.ExitEOD, byRef["A"].ExitReason)
	assert.Equal(t, sim.BlockMaxOpen, byRef["B"].BlockReason)
	assert.True(t, byRef["C"].Filled(), "slot freed once A's exit passed")
}

func TestRunner_Deterministic(t *testing.T) {
	t.Parallel()

	orders := []sim.OrderSpec{
		order("W", "AAAA", 0),
		order("L", "BBBB", 2),
		order("M", "MISSING", 1),
	}

	run := func() Result {
		r := newRunner(t, winLossStore(t), 5, nil)
		res, err := r.Run(context.Background(), orders)
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, run(), run())
}

func TestRunner_AssignsRefs(t *testing.T) {
	t.Parallel()

	r := newRunner(t, winLossStore(t), 5, nil)

	o := order("", "AAAA", 0)
	res, err := r.Run(context.Background(), []sim.OrderSpec{o})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.NotEmpty(t, res.Trades[0].OrderRef)
}

func TestRunner_BackfillsMissingFeatures(t *testing.T) {
	t.Parallel()

	// Flat bars with a constant 2.0 true range: the as-of ATR is exactly 2.
	flat := make([]market.Bar, 10)
	for i := range flat {
		flat[i] = daily("AAAA", i, 100, 101, 99, 100)
	}
	store := newStore(t, &market.Series{Ticker: "AAAA", Bars: flat})

	vol, err := market.NewVolContext(store, 3)
	require.NoError(t, err)
	r := newRunner(t, store, 5, nil)
	r.Vol = vol

	missing := order("V", "AAAA", 8)
	missing.Volatility = 0
	missing.ReferencePrice = 0
	early := order("E", "AAAA", 1) // two bars of history: lookup cannot seed
	early.Volatility = 0
	early.ReferencePrice = 0
	supplied := order("K", "AAAA", 8)
	supplied.Volatility = 5

	res, err := r.Run(context.Background(), []sim.OrderSpec{missing, early, supplied})
	require.NoError(t, err)
	require.Len(t, res.Trades, 3)

	byRef := map[string]sim.TradeResult{}
	for _, tr := range res.Trades {
		byRef[tr.OrderRef] = tr
	}

	v := byRef["V"]
	assert.True(t, v.Filled())
	assert.InDelta(t, 2.0, v.StopDistance, 1e-9, "stop distance from the backfilled ATR")
	assert.Equal(t, 50, v.Shares)

	// Not enough history at the signal: the order stays featureless and the
	// gate rejects it.
	assert.Equal(t, sim.BlockMissingFeatures, byRef["E"].BlockReason)

	// Supplied features are never overridden by the lookup.
	k := byRef["K"]
	assert.True(t, k.Filled())
	assert.InDelta(t, 5.0, k.StopDistance, 1e-9)
}

func TestRunner_NoBackfillWithoutVolContext(t *testing.T) {
	t.Parallel()

	r := newRunner(t, winLossStore(t), 5, nil)

	o := order("V", "AAAA", 0)
	o.Volatility = 0

	res, err := r.Run(context.Background(), []sim.OrderSpec{o})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, sim.BlockMissingFeatures, res.Trades[0].BlockReason)
}

func TestRunner_ContextCancelled(t *testing.T) {
	t.Parallel()

	r := newRunner(t, winLossStore(t), 5, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, []sim.OrderSpec{order("W", "AAAA", 0)})
	assert.ErrorIs(t, err, context.Canceled)
}
