package market

import (
	"fmt"
	"time"

	talib "github.com/markcheno/go-talib"
)

// VolPoint is a per-ticker, as-of volatility figure plus the reference close
// it was computed against.
type VolPoint struct {
	Time     time.Time
	ATR      float64
	RefClose float64
}

// VolContext answers "what was this ticker's ATR and reference close as of
// time t" using only bars at or before t. It exists so the execution engine
// never touches raw feature frames or future bars.
type VolContext struct {
	store  *Store
	period int
}

// NewVolContext wraps a bar store with an ATR lookback period.
func NewVolContext(store *Store, atrPeriod int) (*VolContext, error) {
	if store == nil {
		return nil, fmt.Errorf("volcontext: store is required")
	}
	if atrPeriod <= 0 {
		return nil, fmt.Errorf("volcontext: atr period must be positive, got %d", atrPeriod)
	}
	return &VolContext{store: store, period: atrPeriod}, nil
}

// AsOf returns the ATR and reference close for ticker using bars with
// Time <= t. ok is false when the ticker is unknown or there is not enough
// history to seed the ATR; callers treat that as missing features, not as an
// error.
func (v *VolContext) AsOf(ticker string, t time.Time) (VolPoint, bool) {
	s, found := v.store.Get(ticker)
	if !found {
		return VolPoint{}, false
	}

	bars := s.Upto(t)
	if len(bars) < v.period+1 {
		return VolPoint{}, false
	}

	// Bound the talib input; Wilder smoothing converges well before 4x the
	// period, and the lookup is called once per candidate order.
	if max := v.period * 4; len(bars) > max {
		bars = bars[len(bars)-max:]
	}

	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
	}

	atr := talib.Atr(high, low, closes, v.period)
	last := atr[len(atr)-1]
	if last <= 0 {
		return VolPoint{}, false
	}

	lastBar := bars[len(bars)-1]
	return VolPoint{
		Time:     lastBar.Time,
		ATR:      last,
		RefClose: lastBar.Close,
	}, true
}
