package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendsim/indicators"
	"github.com/rustyeddy/trendsim/market"
	"github.com/rustyeddy/trendsim/portfolio"
	"github.com/rustyeddy/trendsim/sim"
)

// ErrInvalidDateRange is returned by RunConfig.DateRange for unparsable or
// reversed bounds.
var ErrInvalidDateRange = errors.New("invalid date range")

// Config represents the complete backtest configuration
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Run      RunConfig      `json:"run" yaml:"run"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// StrategyConfig contains the trading rules
type StrategyConfig struct {
	Name string `json:"name" yaml:"name"`

	MinPrice     float64 `json:"min_price" yaml:"min_price"`
	MinAvgVolume float64 `json:"min_avg_volume" yaml:"min_avg_volume"`

	AvgVolumeWindow  int `json:"avg_volume_window" yaml:"avg_volume_window"`
	ATRWindow        int `json:"atr_window" yaml:"atr_window"`
	VolatilityWindow int `json:"volatility_window" yaml:"volatility_window"`

	ATRMultiplier      float64 `json:"atr_multiplier" yaml:"atr_multiplier"`
	TargetVolatility   float64 `json:"target_volatility" yaml:"target_volatility"`
	MinAssumedHoldings int     `json:"min_assumed_holdings" yaml:"min_assumed_holdings"`
	MaxLeverage        float64 `json:"max_leverage" yaml:"max_leverage"`

	TurnoverControl    bool    `json:"turnover_control" yaml:"turnover_control"`
	RebalanceThreshold float64 `json:"rebalance_threshold" yaml:"rebalance_threshold"`

	portfolio.Costs `json:",inline" yaml:",inline"`

	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
}

// DataConfig locates the per-instrument CSV files
type DataConfig struct {
	Dir        string  `json:"dir" yaml:"dir"`
	PriceScale float64 `json:"price_scale" yaml:"price_scale"`
	Workers    int     `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// RunConfig bounds the simulated period
type RunConfig struct {
	From          string `json:"from,omitempty" yaml:"from,omitempty"` // YYYY-MM-DD, inclusive
	To            string `json:"to,omitempty" yaml:"to,omitempty"`
	ProgressEvery int    `json:"progress_every,omitempty" yaml:"progress_every,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type      string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	NAVFile   string `json:"nav_file,omitempty" yaml:"nav_file,omitempty"`
	FillsFile string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	DBPath    string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgPath   string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	s := c.Strategy
	if err := s.Windows().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if s.ATRWindow < 2 || s.AvgVolumeWindow < 2 {
		return fmt.Errorf("strategy windows must be at least 2")
	}
	if s.InitialCapital <= 0 {
		return fmt.Errorf("strategy.initial_capital must be positive")
	}
	if s.TargetVolatility <= 0 {
		return fmt.Errorf("strategy.target_volatility must be positive")
	}
	if s.MaxLeverage <= 0 {
		return fmt.Errorf("strategy.max_leverage must be positive")
	}
	if s.MinAssumedHoldings < 1 {
		return fmt.Errorf("strategy.min_assumed_holdings must be at least 1")
	}
	if s.ATRMultiplier < 0 {
		return fmt.Errorf("strategy.atr_multiplier must not be negative")
	}
	if s.MinPrice < 0 || s.MinAvgVolume < 0 {
		return fmt.Errorf("strategy.min_price and min_avg_volume must not be negative")
	}
	if s.RebalanceThreshold < 0 || s.RebalanceThreshold >= 1 {
		return fmt.Errorf("strategy.rebalance_threshold must be between 0 and 1")
	}
	for _, r := range []struct {
		name string
		rate float64
	}{
		{"commission_rate", s.Commission},
		{"sell_tax_rate", s.SellTax},
		{"slippage_rate", s.Slippage},
	} {
		if r.rate < 0 || r.rate >= 1 {
			return fmt.Errorf("strategy.%s must be between 0 and 1", r.name)
		}
	}
	if s.Commission+s.SellTax+s.Slippage >= 1 {
		return fmt.Errorf("strategy cost rates must sum below 1")
	}

	if c.Data.PriceScale < 0 {
		return fmt.Errorf("data.price_scale must not be negative")
	}
	if c.Data.Workers < 0 {
		return fmt.Errorf("data.workers must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.NAVFile == "" || c.Journal.FillsFile == "" {
			return fmt.Errorf("journal nav_file and fills_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// DateRange parses the run bounds. Empty bounds are returned as zero times.
func (r RunConfig) DateRange() (from, to time.Time, err error) {
	if r.From != "" {
		if from, err = market.ParseDate(r.From); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("run.from: %v: %w", err, ErrInvalidDateRange)
		}
	}
	if r.To != "" {
		if to, err = market.ParseDate(r.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("run.to: %v: %w", err, ErrInvalidDateRange)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("run.from %s is after run.to %s: %w", r.From, r.To, ErrInvalidDateRange)
	}
	return from, to, nil
}

// Windows returns the indicator lookbacks.
func (s StrategyConfig) Windows() indicators.Windows {
	return indicators.Windows{
		ATR:        s.ATRWindow,
		Volatility: s.VolatilityWindow,
		AvgVolume:  s.AvgVolumeWindow,
	}
}

// Rules converts the strategy section to engine rules.
func (s StrategyConfig) Rules() sim.Rules {
	return sim.Rules{
		MinPrice:           s.MinPrice,
		MinAvgVolume:       s.MinAvgVolume,
		ATRMultiplier:      s.ATRMultiplier,
		TargetVolatility:   s.TargetVolatility,
		MinAssumedHoldings: s.MinAssumedHoldings,
		MaxLeverage:        s.MaxLeverage,
		TurnoverControl:    s.TurnoverControl,
		RebalanceThreshold: s.RebalanceThreshold,
		Costs:              s.Costs,
		InitialCapital:     s.InitialCapital,
	}
}

// Default returns the tuned trend-following configuration
func Default() *Config {
	return &Config{
		Strategy: StrategyConfig{
			Name:               "trend-ath",
			MinPrice:           10_000,
			MinAvgVolume:       100_000,
			AvgVolumeWindow:    42,
			ATRWindow:          42,
			VolatilityWindow:   42,
			ATRMultiplier:      10,
			TargetVolatility:   0.30,
			MinAssumedHoldings: 20,
			MaxLeverage:        1.0,
			TurnoverControl:    true,
			RebalanceThreshold: 0.003,
			Costs: portfolio.Costs{
				Commission: 0.0015,
				SellTax:    0.001,
				Slippage:   0.0005,
			},
			InitialCapital: 100_000_000,
		},
		Data: DataConfig{
			Dir:        "./data",
			PriceScale: 1000,
		},
		Run: RunConfig{
			ProgressEvery: sim.DefaultProgressEvery,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
