package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rustyeddy/stratlab/backtest"
	"github.com/rustyeddy/stratlab/config"
	"github.com/rustyeddy/stratlab/feed"
	"github.com/rustyeddy/stratlab/journal"
	"github.com/rustyeddy/stratlab/market"
	"github.com/rustyeddy/stratlab/risk"
	"github.com/rustyeddy/stratlab/sim"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch backtest from a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd.Context(), runConfigPath)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "stratlab.yaml", "run configuration file")
	rootCmd.AddCommand(runCmd)
}

func runBatch(ctx context.Context, cfgPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := feed.LoadBars(cfg.Data.BarsFile)
	if err != nil {
		return err
	}
	orders, err := feed.LoadOrders(cfg.Data.OrdersFile, cfg.OrderParams())
	if err != nil {
		return err
	}
	log.Info("inputs loaded",
		zap.Int("tickers", len(store.Tickers())),
		zap.Int("orders", len(orders)),
	)

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer jnl.Close()

	state, err := risk.NewState(cfg.Account.InitialCapital)
	if err != nil {
		return err
	}
	gate, err := risk.NewGate(cfg.GateConfig(), state, log)
	if err != nil {
		return err
	}

	runner := &backtest.Runner{
		Gate:    gate,
		Store:   store,
		Journal: jnl,
		Log:     log,
	}
	if cfg.Policy.ATRPeriod > 0 {
		vol, err := market.NewVolContext(store, cfg.Policy.ATRPeriod)
		if err != nil {
			return err
		}
		runner.Vol = vol
	}

	result, err := runner.Run(ctx, orders)
	if err != nil {
		return err
	}

	s := result.Summary
	fmt.Printf("orders: %d  filled: %d  wins: %d  losses: %d  blocked: %d  no-data: %d\n",
		s.Orders, s.Filled, s.Wins, s.Losses, s.Blocked, s.NoData)
	fmt.Printf("net pnl: %.2f  end equity: %.2f  win rate: %.1f%%  max drawdown: %.1f%%\n",
		s.NetPnL, s.EndEquity, 100*s.WinRate, 100*s.MaxDrawdown)
	reasons := make([]string, 0, len(s.BlockedBy))
	for reason := range s.BlockedBy {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Printf("  blocked %s: %d\n", reason, s.BlockedBy[sim.BlockReason(reason)])
	}
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return journal.NewCSV(jc.TradesFile, jc.EquityFile)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
