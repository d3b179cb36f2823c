package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/stratlab/feed"
	"github.com/rustyeddy/stratlab/risk"
)

// Config is the complete run configuration.
type Config struct {
	Account AccountConfig `yaml:"account"`
	Policy  PolicyConfig  `yaml:"policy"`
	Data    DataConfig    `yaml:"data"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

// AccountConfig seeds the portfolio.
type AccountConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
}

// PolicyConfig carries both the per-order exit policy and the portfolio
// admission policy; these are run-wide constants, not per-row data.
type PolicyConfig struct {
	StopMult            float64 `yaml:"stop_mult"`
	TargetMult          float64 `yaml:"target_mult"`
	TrailingMult        float64 `yaml:"trailing_mult"`
	TrailActivationMult float64 `yaml:"trail_activation_mult"`
	BreakEvenMult       float64 `yaml:"break_even_mult"`
	MaxHoldingBars      int     `yaml:"max_holding_bars"`
	MaxHoldingSessions  int     `yaml:"max_holding_sessions"`
	SlippagePct         float64 `yaml:"slippage_pct"`

	RiskPerTrade    float64 `yaml:"risk_per_trade"`
	MaxOpen         int     `yaml:"max_open"`
	DailyStopR      float64 `yaml:"daily_stop_r"`
	OnePerTickerDay bool    `yaml:"one_per_ticker_day"`

	// ATRPeriod drives the as-of volatility backfill for candidates whose
	// volatility column is missing. Zero disables the backfill.
	ATRPeriod int `yaml:"atr_period"`
}

// DataConfig points at the two input files.
type DataConfig struct {
	BarsFile   string `yaml:"bars_file"`
	OrdersFile string `yaml:"orders_file"`
}

// JournalConfig selects the ledger backend.
type JournalConfig struct {
	Type       string `yaml:"type"` // "csv" or "sqlite"
	TradesFile string `yaml:"trades_file,omitempty"`
	EquityFile string `yaml:"equity_file,omitempty"`
	DBPath     string `yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads and validates a YAML config file. Validation failures abort
// before any order is processed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks operator-supplied configuration. These are programmer or
// operator errors, so the whole run fails fast here.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Policy.StopMult <= 0 {
		return fmt.Errorf("policy.stop_mult must be positive")
	}
	if c.Policy.TargetMult <= 0 {
		return fmt.Errorf("policy.target_mult must be positive")
	}
	if c.Policy.TrailingMult < 0 || c.Policy.TrailActivationMult < 0 || c.Policy.BreakEvenMult < 0 {
		return fmt.Errorf("policy ratchet multipliers must not be negative")
	}
	if c.Policy.MaxHoldingBars < 0 || c.Policy.MaxHoldingSessions < 0 {
		return fmt.Errorf("policy holding horizons must not be negative")
	}
	if c.Policy.MaxHoldingBars > 0 && c.Policy.MaxHoldingSessions > 0 {
		return fmt.Errorf("policy: set max_holding_bars or max_holding_sessions, not both")
	}
	if c.Policy.SlippagePct < 0 {
		return fmt.Errorf("policy.slippage_pct must not be negative")
	}
	if c.Policy.RiskPerTrade <= 0 || c.Policy.RiskPerTrade >= 1 {
		return fmt.Errorf("policy.risk_per_trade must be between 0 and 1")
	}
	if c.Policy.MaxOpen <= 0 {
		return fmt.Errorf("policy.max_open must be positive")
	}
	if c.Policy.DailyStopR > 0 {
		return fmt.Errorf("policy.daily_stop_r must be zero or negative")
	}
	if c.Policy.ATRPeriod < 0 {
		return fmt.Errorf("policy.atr_period must not be negative")
	}
	if c.Data.BarsFile == "" || c.Data.OrdersFile == "" {
		return fmt.Errorf("data.bars_file and data.orders_file are required")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	return nil
}

// GateConfig maps the policy onto the portfolio gate.
func (c *Config) GateConfig() risk.Config {
	return risk.Config{
		MaxOpen:         c.Policy.MaxOpen,
		RiskPerTrade:    c.Policy.RiskPerTrade,
		DailyStopR:      c.Policy.DailyStopR,
		OnePerTickerDay: c.Policy.OnePerTickerDay,
	}
}

// OrderParams maps the policy onto the per-order exit parameters.
func (c *Config) OrderParams() feed.OrderParams {
	return feed.OrderParams{
		StopMult:            c.Policy.StopMult,
		TargetMult:          c.Policy.TargetMult,
		TrailingMult:        c.Policy.TrailingMult,
		TrailActivationMult: c.Policy.TrailActivationMult,
		BreakEvenMult:       c.Policy.BreakEvenMult,
		MaxHoldingBars:      c.Policy.MaxHoldingBars,
		MaxHoldingSessions:  c.Policy.MaxHoldingSessions,
		SlippagePct:         c.Policy.SlippagePct,
	}
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{InitialCapital: 100_000},
		Policy: PolicyConfig{
			StopMult:       1.0,
			TargetMult:     1.5,
			MaxHoldingBars: 20,
			RiskPerTrade:   0.01,
			MaxOpen:        3,
			DailyStopR:     -2.0,
			ATRPeriod:      14,
		},
		Data: DataConfig{
			BarsFile:   "./bars.csv",
			OrdersFile: "./orders.csv",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{Level: "info"},
	}
}
