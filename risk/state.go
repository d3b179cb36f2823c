package risk

import (
	"fmt"
	"time"

	"github.com/rustyeddy/stratlab/market"
)

// slot is one occupied concurrency slot. ExitTime stays zero between
// admission and finalization, during which the slot always counts as open.
type slot struct {
	ref       string
	ticker    string
	entryTime time.Time
	exitTime  time.Time
}

// State is the single mutable portfolio object for one run. It is owned by
// the batch runner and mutated only by the Gate, in strict chronological
// order; nothing in here is safe for concurrent use and nothing needs to be.
type State struct {
	Equity    float64
	HighWater float64

	slots []slot

	dayPnL map[time.Time]float64
	dayR   map[time.Time]float64

	tickerDays map[string]struct{}
}

// NewState seeds the portfolio with its starting capital.
func NewState(initialCapital float64) (*State, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("portfolio: initial capital must be positive, got %g", initialCapital)
	}
	return &State{
		Equity:     initialCapital,
		HighWater:  initialCapital,
		dayPnL:     make(map[time.Time]float64),
		dayR:       make(map[time.Time]float64),
		tickerDays: make(map[string]struct{}),
	}, nil
}

// OpenCount sweeps out slots whose trades have closed at or before t (lazy
// close-out), then reports how many remain open.
func (s *State) OpenCount(t time.Time) int {
	kept := s.slots[:0]
	for _, sl := range s.slots {
		if !sl.exitTime.IsZero() && !sl.exitTime.After(t) {
			continue
		}
		kept = append(kept, sl)
	}
	s.slots = kept
	return len(s.slots)
}

// Reserve occupies a concurrency slot before the trade is simulated, so
// later candidates on the same day already see it.
func (s *State) Reserve(ref, ticker string, t time.Time) {
	s.slots = append(s.slots, slot{ref: ref, ticker: ticker, entryTime: t})
}

// Release frees a reserved slot whose trade never entered the market.
func (s *State) Release(ref string) {
	for i, sl := range s.slots {
		if sl.ref == ref {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return
		}
	}
}

// Settle stamps the slot's exit time and books the realized PnL and
// R-multiple into the exit day's buckets. Equity moves here and only here:
// never speculatively at admission.
func (s *State) Settle(ref string, exitTime time.Time, pnl, rMultiple float64) {
	for i := range s.slots {
		if s.slots[i].ref == ref {
			s.slots[i].exitTime = exitTime
			break
		}
	}

	day := market.DayOf(exitTime)
	s.dayPnL[day] += pnl
	s.dayR[day] += rMultiple
	s.Equity += pnl
	if s.Equity > s.HighWater {
		s.HighWater = s.Equity
	}
}

// DayRealizedR is the cumulative realized R-multiple for the given day.
func (s *State) DayRealizedR(day time.Time) float64 {
	return s.dayR[market.DayOf(day)]
}

// DayRealizedPnL is the cumulative realized PnL for the given day.
func (s *State) DayRealizedPnL(day time.Time) float64 {
	return s.dayPnL[market.DayOf(day)]
}

// MarkTickerDay records an admitted ticker/day pair for the optional
// one-trade-per-ticker-per-day policy.
func (s *State) MarkTickerDay(ticker string, day time.Time) {
	s.tickerDays[tickerDayKey(ticker, day)] = struct{}{}
}

// TickerDayTaken reports whether a trade was already admitted for this
// ticker on this day.
func (s *State) TickerDayTaken(ticker string, day time.Time) bool {
	_, ok := s.tickerDays[tickerDayKey(ticker, day)]
	return ok
}

func tickerDayKey(ticker string, day time.Time) string {
	return ticker + "|" + market.DayOf(day).Format("2006-01-02")
}

// Drawdown is the current equity distance from the high-water mark, as a
// fraction of the high-water mark.
func (s *State) Drawdown() float64 {
	if s.HighWater <= 0 {
		return 0
	}
	return (s.HighWater - s.Equity) / s.HighWater
}
