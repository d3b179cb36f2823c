package market

import (
	"fmt"
	"time"
)

// Bar is one OHLCV bar for a single ticker. Timestamps are expected to be
// timezone-normalized by the ingestion layer before they reach this package.
type Bar struct {
	Ticker string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Validate enforces the OHLC range invariants. A bar that fails here is a
// precondition violation, not a data-absence condition: silently coercing it
// would corrupt every PnL derived from it.
func (b Bar) Validate() error {
	if b.Ticker == "" {
		return fmt.Errorf("bar: ticker is required")
	}
	if b.Time.IsZero() {
		return fmt.Errorf("bar %s: timestamp is required", b.Ticker)
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar %s@%s: prices must be positive", b.Ticker, b.Time.Format(time.RFC3339))
	}
	if b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("bar %s@%s: high %.6f below open/close", b.Ticker, b.Time.Format(time.RFC3339), b.High)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("bar %s@%s: low %.6f above open/close", b.Ticker, b.Time.Format(time.RFC3339), b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s@%s: negative volume", b.Ticker, b.Time.Format(time.RFC3339))
	}
	return nil
}

// DayOf truncates t to its trading date (midnight UTC). Used as the key for
// daily PnL buckets and session counting.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
