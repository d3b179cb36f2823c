package market

import (
	"fmt"
	"sort"
	"time"
)

// Series holds the time-ordered bars for one ticker.
//
// Bars must be strictly increasing in time; Validate enforces this once at
// the boundary so the engine never has to re-check ordering mid-walk.
type Series struct {
	Ticker string
	Bars   []Bar
}

// Validate checks per-bar invariants and strict timestamp ordering.
func (s *Series) Validate() error {
	if s.Ticker == "" {
		return fmt.Errorf("series: ticker is required")
	}
	for i, b := range s.Bars {
		if b.Ticker != s.Ticker {
			return fmt.Errorf("series %s: bar %d belongs to %q", s.Ticker, i, b.Ticker)
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("series %s: %w", s.Ticker, err)
		}
		if i > 0 && !s.Bars[i-1].Time.Before(b.Time) {
			return fmt.Errorf("series %s: timestamps not strictly increasing at index %d (%s >= %s)",
				s.Ticker, i,
				s.Bars[i-1].Time.Format(time.RFC3339), b.Time.Format(time.RFC3339))
		}
	}
	return nil
}

// From returns the suffix of bars with Time >= t. The returned slice aliases
// the series storage; callers must treat it as read-only.
func (s *Series) From(t time.Time) []Bar {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Time.Before(t)
	})
	return s.Bars[i:]
}

// Upto returns the prefix of bars with Time <= t. This is the anti-leakage
// boundary: everything derived "as of" t must come from this slice only.
func (s *Series) Upto(t time.Time) []Bar {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return s.Bars[i].Time.After(t)
	})
	return s.Bars[:i]
}

// Store is the in-memory bar universe for one run: ticker -> series.
type Store struct {
	series map[string]*Series
}

func NewStore() *Store {
	return &Store{series: make(map[string]*Series)}
}

// Add validates and registers a series. Re-adding a ticker is an error.
func (st *Store) Add(s *Series) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok := st.series[s.Ticker]; ok {
		return fmt.Errorf("store: duplicate series for %s", s.Ticker)
	}
	st.series[s.Ticker] = s
	return nil
}

func (st *Store) Get(ticker string) (*Series, bool) {
	s, ok := st.series[ticker]
	return s, ok
}

// Tickers returns the registered tickers in sorted order for deterministic
// iteration.
func (st *Store) Tickers() []string {
	out := make([]string, 0, len(st.series))
	for k := range st.series {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
