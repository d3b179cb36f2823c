// Package feed adapts the two tabular inputs the engine consumes — bar
// files and order-candidate files — into typed structs, so nothing past this
// boundary ever branches on column names.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/stratlab/market"
	"github.com/rustyeddy/stratlab/sim"
)

// OrderParams are the policy parameters that are constant across a run and
// get stamped onto every candidate row.
type OrderParams struct {
	StopMult            float64
	TargetMult          float64
	TrailingMult        float64
	TrailActivationMult float64
	BreakEvenMult       float64
	MaxHoldingBars      int
	MaxHoldingSessions  int
	SlippagePct         float64
}

var barHeader = []string{"ticker", "timestamp", "open", "high", "low", "close", "volume"}
var orderHeader = []string{"ticker", "side", "signal_time", "reference_price", "volatility", "probability"}

// LoadBars reads a bar file (one row per ticker/timestamp, sorted ascending
// per ticker) into a validated store.
func LoadBars(path string) (*market.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	if err := readHeader(rd, barHeader); err != nil {
		return nil, fmt.Errorf("bars %s: %w", path, err)
	}

	byTicker := make(map[string][]market.Bar)
	var order []string

	line := 1
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bars %s: %w", path, err)
		}
		line++

		b, err := parseBar(rec)
		if err != nil {
			return nil, fmt.Errorf("bars %s line %d: %w", path, line, err)
		}
		if _, seen := byTicker[b.Ticker]; !seen {
			order = append(order, b.Ticker)
		}
		byTicker[b.Ticker] = append(byTicker[b.Ticker], b)
	}

	store := market.NewStore()
	for _, ticker := range order {
		s := &market.Series{Ticker: ticker, Bars: byTicker[ticker]}
		if err := store.Add(s); err != nil {
			return nil, fmt.Errorf("bars %s: %w", path, err)
		}
	}
	return store, nil
}

// LoadOrders reads an order-candidate file and applies the run-wide policy
// parameters to every row.
func LoadOrders(path string, p OrderParams) ([]sim.OrderSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	if err := readHeader(rd, orderHeader); err != nil {
		return nil, fmt.Errorf("orders %s: %w", path, err)
	}

	var out []sim.OrderSpec
	line := 1
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("orders %s: %w", path, err)
		}
		line++

		o, err := parseOrder(rec, p)
		if err != nil {
			return nil, fmt.Errorf("orders %s line %d: %w", path, line, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func readHeader(rd *csv.Reader, want []string) error {
	got, err := rd.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(got) != len(want) {
		return fmt.Errorf("header has %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("header column %d is %q, want %q", i, got[i], want[i])
		}
	}
	return nil
}

func parseBar(rec []string) (market.Bar, error) {
	if len(rec) != len(barHeader) {
		return market.Bar{}, fmt.Errorf("row has %d columns, want %d", len(rec), len(barHeader))
	}

	ts, err := time.Parse(time.RFC3339, rec[1])
	if err != nil {
		return market.Bar{}, fmt.Errorf("timestamp %q: %w", rec[1], err)
	}

	vals := make([]float64, 5)
	for i, col := range rec[2:] {
		v, err := strconv.ParseFloat(col, 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("%s %q: %w", barHeader[i+2], col, err)
		}
		vals[i] = v
	}

	return market.Bar{
		Ticker: rec[0],
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func parseOrder(rec []string, p OrderParams) (sim.OrderSpec, error) {
	if len(rec) != len(orderHeader) {
		return sim.OrderSpec{}, fmt.Errorf("row has %d columns, want %d", len(rec), len(orderHeader))
	}

	side, err := sim.ParseSide(rec[1])
	if err != nil {
		return sim.OrderSpec{}, err
	}
	ts, err := time.Parse(time.RFC3339, rec[2])
	if err != nil {
		return sim.OrderSpec{}, fmt.Errorf("signal_time %q: %w", rec[2], err)
	}

	vals := make([]float64, 3)
	for i, col := range rec[3:] {
		v, err := strconv.ParseFloat(col, 64)
		if err != nil {
			return sim.OrderSpec{}, fmt.Errorf("%s %q: %w", orderHeader[i+3], col, err)
		}
		vals[i] = v
	}

	return sim.OrderSpec{
		Ticker:              rec[0],
		Side:                side,
		SignalTime:          ts,
		ReferencePrice:      vals[0],
		Volatility:          vals[1],
		Probability:         vals[2],
		StopMult:            p.StopMult,
		TargetMult:          p.TargetMult,
		TrailingMult:        p.TrailingMult,
		TrailActivationMult: p.TrailActivationMult,
		BreakEvenMult:       p.BreakEvenMult,
		MaxHoldingBars:      p.MaxHoldingBars,
		MaxHoldingSessions:  p.MaxHoldingSessions,
		SlippagePct:         p.SlippagePct,
	}, nil
}
