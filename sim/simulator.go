package sim

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/stratlab/market"
)

// Simulate resolves one order against its ticker's bar stream and returns
// the exact exit bar, price, and reason.
//
// It is a pure function of the order, the share count, and the bars: it owns
// no portfolio state, which is what keeps exit resolution testable without a
// portfolio harness. Bars must be ascending in time (market.Series enforces
// this at the boundary).
//
// The state machine is PENDING_ENTRY -> OPEN -> CLOSED. Entry fills at the
// open of the first eligible bar, worsened by slippage. Exits are evaluated
// from the bar after the entry bar onward, in this order per bar:
//
//  1. stop, then target, with a stop-first tie-break when one bar touches
//     both (pessimistic by contract: never overstate edge);
//  2. gap realism: a bar opening beyond the level fills at its open, not at
//     the stale level;
//  3. trailing / break-even ratchets, only on bars where no exit fired, and
//     the stop only ever tightens;
//  4. horizon exhaustion at the bar's close.
func Simulate(o OrderSpec, shares int, bars []market.Bar) (TradeResult, error) {
	if err := o.Validate(); err != nil {
		return TradeResult{}, err
	}
	if shares <= 0 {
		return TradeResult{}, fmt.Errorf("order %s: shares must be positive, got %d", o.Ref, shares)
	}

	first := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Time.Before(o.SignalTime)
	})
	if first == len(bars) {
		return NoData(o), nil
	}

	entryIdx, entryPrice, ok := resolveEntry(o, bars, first)
	if !ok {
		return NoData(o), nil
	}

	side := float64(o.Side)
	stopDist := o.StopDistance()
	stop := entryPrice - side*stopDist
	target := entryPrice + side*o.TargetDistance()
	ratcheted := false
	extreme := entryPrice

	entryBar := bars[entryIdx]
	sessions := 1
	lastDay := market.DayOf(entryBar.Time)

	res := TradeResult{
		OrderRef:     o.Ref,
		Ticker:       o.Ticker,
		Side:         o.Side,
		EntryTime:    entryBar.Time,
		EntryPrice:   entryPrice,
		Shares:       shares,
		StopDistance: stopDist,
	}

	for i := entryIdx + 1; i < len(bars); i++ {
		b := bars[i]

		// Session horizon: a position must not survive past its last allowed
		// session; force out at the next available close.
		if o.MaxHoldingSessions > 0 {
			if day := market.DayOf(b.Time); !day.Equal(lastDay) {
				sessions++
				lastDay = day
			}
			if sessions > o.MaxHoldingSessions {
				return res.closed(b.Time, b.Close, ExitEOD), nil
			}
		}

		var stopHit, targetHit bool
		if o.Side == Buy {
			stopHit = b.Low <= stop
			targetHit = b.High >= target
		} else {
			stopHit = b.High >= stop
			targetHit = b.Low <= target
		}

		if stopHit {
			// Stop-first on stop+target bars. A bar opening through the stop
			// fills at its open.
			px := stop
			if side*(b.Open-stop) < 0 {
				px = b.Open
			}
			reason := ExitSL
			if ratcheted {
				reason = ExitTrailSL
			}
			return res.closed(b.Time, px, reason), nil
		}
		if targetHit {
			// A bar opening beyond the target fills at its open (in the
			// trade's favor).
			px := target
			if side*(b.Open-target) > 0 {
				px = b.Open
			}
			return res.closed(b.Time, px, ExitTP), nil
		}

		// Ratchets. The stop may tighten, never loosen.
		if o.Side == Buy {
			if b.High > extreme {
				extreme = b.High
			}
		} else if b.Low < extreme {
			extreme = b.Low
		}
		excursion := side * (extreme - entryPrice)

		if o.BreakEvenMult > 0 && excursion >= o.BreakEvenMult*o.Volatility {
			if side*(entryPrice-stop) > 0 {
				stop = entryPrice
				ratcheted = true
			}
		}
		if o.TrailingMult > 0 && excursion >= o.TrailActivationMult*o.Volatility {
			if cand := extreme - side*o.TrailingMult*o.Volatility; side*(cand-stop) > 0 {
				stop = cand
				ratcheted = true
			}
		}

		if o.MaxHoldingBars > 0 && i-entryIdx >= o.MaxHoldingBars {
			return res.closed(b.Time, b.Close, ExitTime), nil
		}
	}

	// Stream exhausted before the horizon: out at the last available close.
	last := bars[len(bars)-1]
	return res.closed(last.Time, last.Close, ExitEOD), nil
}

func resolveEntry(o OrderSpec, bars []market.Bar, first int) (idx int, fill float64, ok bool) {
	if o.Entry == nil {
		return first, entryFill(o.Side, bars[first].Open, o.SlippagePct), true
	}

	o.Entry.Reset()
	end := first + o.EntryWindowBars
	if end > len(bars) {
		end = len(bars)
	}
	for i := first; i < end; i++ {
		if o.Entry.Triggered(bars[i]) {
			return i, entryFill(o.Side, bars[i].Open, o.SlippagePct), true
		}
	}
	return 0, 0, false
}

// entryFill worsens the fill in the trade's direction.
func entryFill(side Side, open, slippage float64) float64 {
	if side == Buy {
		return open * (1 + slippage)
	}
	return open * (1 - slippage)
}

// closed finalizes the result at the given exit. PnL per share is
// side-signed, and the R-multiple divides by the stop distance fixed at
// entry, never the ratcheted stop.
func (r TradeResult) closed(t time.Time, px float64, reason ExitReason) TradeResult {
	r.ExitTime = t
	r.ExitPrice = px
	r.ExitReason = reason
	perShare := float64(r.Side) * (px - r.EntryPrice)
	r.PnL = perShare * float64(r.Shares)
	r.RMultiple = perShare / r.StopDistance
	return r
}
