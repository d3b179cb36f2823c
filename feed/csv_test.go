package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratlab/sim"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBars(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bars.csv", `ticker,timestamp,open,high,low,close,volume
ACME,2024-03-04T10:00:00Z,100,101,99,100.5,12000
ACME,2024-03-04T11:00:00Z,100.5,102,100,101,9000
BETA,2024-03-04T10:00:00Z,50,51,49,50,4000
`)

	store, err := LoadBars(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME", "BETA"}, store.Tickers())

	s, ok := store.Get("ACME")
	require.True(t, ok)
	require.Len(t, s.Bars, 2)
	assert.True(t, s.Bars[0].Time.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	assert.InDelta(t, 100.5, s.Bars[0].Close, 1e-9)
	assert.InDelta(t, 12000.0, s.Bars[0].Volume, 1e-9)
}

func TestLoadBars_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"wrong header", "symbol,timestamp,open,high,low,close,volume\n"},
		{"bad timestamp", "ticker,timestamp,open,high,low,close,volume\nACME,yesterday,1,2,0.5,1,10\n"},
		{"bad price", "ticker,timestamp,open,high,low,close,volume\nACME,2024-03-04T10:00:00Z,x,2,0.5,1,10\n"},
		{"unsorted", "ticker,timestamp,open,high,low,close,volume\n" +
			"ACME,2024-03-04T11:00:00Z,1,2,0.5,1,10\n" +
			"ACME,2024-03-04T10:00:00Z,1,2,0.5,1,10\n"},
		{"invalid ohlc", "ticker,timestamp,open,high,low,close,volume\nACME,2024-03-04T10:00:00Z,100,99,99,100,10\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, "bars.csv", tt.content)
			_, err := LoadBars(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadOrders(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "orders.csv", `ticker,side,signal_time,reference_price,volatility,probability
ACME,BUY,2024-03-04T10:00:00Z,100.5,2.25,0.62
BETA,SELL,2024-03-04T10:30:00Z,50,1.1,0.55
`)

	p := OrderParams{
		StopMult:       1,
		TargetMult:     1.5,
		TrailingMult:   1,
		MaxHoldingBars: 20,
		SlippagePct:    0.001,
	}
	orders, err := LoadOrders(path, p)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	o := orders[0]
	assert.Equal(t, "ACME", o.Ticker)
	assert.Equal(t, sim.Buy, o.Side)
	assert.InDelta(t, 100.5, o.ReferencePrice, 1e-9)
	assert.InDelta(t, 2.25, o.Volatility, 1e-9)
	assert.InDelta(t, 0.62, o.Probability, 1e-9)
	// Run-wide policy stamped onto every row.
	assert.InDelta(t, 1.5, o.TargetMult, 1e-9)
	assert.Equal(t, 20, o.MaxHoldingBars)
	assert.InDelta(t, 0.001, o.SlippagePct, 1e-9)

	assert.Equal(t, sim.Sell, orders[1].Side)
}

func TestLoadOrders_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"wrong header", "ticker,direction,signal_time,reference_price,volatility,probability\n"},
		{"bad side", "ticker,side,signal_time,reference_price,volatility,probability\nACME,LONG,2024-03-04T10:00:00Z,100,2,0.5\n"},
		{"bad time", "ticker,side,signal_time,reference_price,volatility,probability\nACME,BUY,noon,100,2,0.5\n"},
		{"bad float", "ticker,side,signal_time,reference_price,volatility,probability\nACME,BUY,2024-03-04T10:00:00Z,100,two,0.5\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, "orders.csv", tt.content)
			_, err := LoadOrders(path, OrderParams{StopMult: 1, TargetMult: 1})
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadBars(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
	_, err = LoadOrders(filepath.Join(t.TempDir(), "nope.csv"), OrderParams{})
	assert.Error(t, err)
}
