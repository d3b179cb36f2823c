package sim

import (
	"fmt"
	"time"
)

// Side of a proposed trade: +1 long, -1 short.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return fmt.Sprintf("Side(%d)", int8(s))
}

// ParseSide maps the ledger spelling back to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// OrderSpec is one immutable candidate trade. It carries everything the
// simulator needs to resolve an exit, and nothing else: feature engineering
// and calibration happen upstream and arrive here as Volatility and
// Probability.
type OrderSpec struct {
	Ref    string
	Ticker string
	Side   Side

	// SignalTime is when the order becomes eligible. Its features must have
	// been computed from data at or before this time.
	SignalTime time.Time

	// ReferencePrice anchors sizing sanity checks; typically the prior close.
	ReferencePrice float64

	// Volatility is an ATR-like scalar; stop and target distances are
	// multiples of it.
	Volatility float64

	StopMult   float64
	TargetMult float64

	// TrailingMult > 0 enables the trailing stop once the favorable excursion
	// reaches TrailActivationMult * Volatility.
	TrailingMult        float64
	TrailActivationMult float64

	// BreakEvenMult > 0 ratchets the stop to the entry price once the
	// favorable excursion reaches BreakEvenMult * Volatility.
	BreakEvenMult float64

	// Exactly one horizon should be set. Bars counts bars after the entry
	// bar; Sessions counts distinct trading dates including the entry date.
	MaxHoldingBars     int
	MaxHoldingSessions int

	// Entry, when non-nil, switches from market-at-next-open to a
	// pattern-triggered entry evaluated over EntryWindowBars bars.
	Entry           EntryRule
	EntryWindowBars int

	// SlippagePct worsens the entry fill: BUY pays more, SELL receives less.
	SlippagePct float64

	// Probability is the calibrated win probability. Sizing and
	// prioritization only; exits never read it.
	Probability float64
}

// Validate fails fast on precondition violations. A rejected order here is a
// programmer/data bug, not an expected outcome, so this returns an error
// rather than a blocked result.
func (o OrderSpec) Validate() error {
	if o.Ticker == "" {
		return fmt.Errorf("order %s: ticker is required", o.Ref)
	}
	if o.Side != Buy && o.Side != Sell {
		return fmt.Errorf("order %s: invalid side %d", o.Ref, o.Side)
	}
	if o.SignalTime.IsZero() {
		return fmt.Errorf("order %s: signal time is required", o.Ref)
	}
	if o.Volatility <= 0 {
		return fmt.Errorf("order %s: volatility must be positive, got %g", o.Ref, o.Volatility)
	}
	if o.StopMult <= 0 || o.TargetMult <= 0 {
		return fmt.Errorf("order %s: stop/target multipliers must be positive", o.Ref)
	}
	if o.ReferencePrice <= 0 {
		return fmt.Errorf("order %s: reference price must be positive", o.Ref)
	}
	if o.TrailingMult < 0 || o.TrailActivationMult < 0 || o.BreakEvenMult < 0 {
		return fmt.Errorf("order %s: ratchet multipliers must not be negative", o.Ref)
	}
	if o.MaxHoldingBars < 0 || o.MaxHoldingSessions < 0 {
		return fmt.Errorf("order %s: holding horizon must not be negative", o.Ref)
	}
	if o.MaxHoldingBars > 0 && o.MaxHoldingSessions > 0 {
		return fmt.Errorf("order %s: set a bar horizon or a session horizon, not both", o.Ref)
	}
	if o.SlippagePct < 0 {
		return fmt.Errorf("order %s: slippage must not be negative", o.Ref)
	}
	if o.Entry != nil && o.EntryWindowBars <= 0 {
		return fmt.Errorf("order %s: pattern entry requires a positive entry window", o.Ref)
	}
	if o.Probability < 0 || o.Probability > 1 {
		return fmt.Errorf("order %s: probability must be in [0,1], got %g", o.Ref, o.Probability)
	}
	return nil
}

// StopDistance is the per-share risk fixed at entry. R-multiples are always
// computed against this, never against a ratcheted stop.
func (o OrderSpec) StopDistance() float64 { return o.StopMult * o.Volatility }

// TargetDistance is the per-share reward distance.
func (o OrderSpec) TargetDistance() float64 { return o.TargetMult * o.Volatility }
