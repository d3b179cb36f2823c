package sim

import "github.com/rustyeddy/stratlab/market"

// EntryRule is a pattern predicate evaluated bar by bar inside the entry
// window. Reset is called once before the window; Triggered sees each bar in
// order and reports whether this bar fires the entry.
type EntryRule interface {
	Reset()
	Triggered(b market.Bar) bool
}

// EMAReclaim fires when the close crosses a rolling EMA from below: the
// previous close was under the EMA and this close is above it.
type EMAReclaim struct {
	period int
	alpha  float64

	seen      int
	value     float64
	prevBelow bool
}

func NewEMAReclaim(period int) *EMAReclaim {
	if period <= 0 {
		panic("ema reclaim: period must be > 0")
	}
	return &EMAReclaim{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMAReclaim) Reset() {
	e.seen = 0
	e.value = 0
	e.prevBelow = false
}

func (e *EMAReclaim) Triggered(b market.Bar) bool {
	e.seen++
	if e.seen == 1 {
		// Seed with the first close (simple, deterministic).
		e.value = b.Close
		e.prevBelow = false
		return false
	}

	e.value = e.alpha*b.Close + (1.0-e.alpha)*e.value

	ready := e.seen >= e.period
	fired := ready && e.prevBelow && b.Close > e.value
	e.prevBelow = b.Close < e.value
	return fired
}
