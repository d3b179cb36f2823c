package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stratlab",
	Short: "Deterministic equities trade-execution and risk-control backtester",
	Long: `Stratlab replays candidate intraday/swing trades against historical OHLCV
bars with a deterministic, leakage-free execution engine.

It provides:
  - Bar-by-bar exit resolution (stop/target/trailing/break-even/time)
  - Portfolio admission control (concurrency cap, daily circuit breaker)
  - Risk-based position sizing
  - Trade and equity ledgers in CSV or SQLite`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
