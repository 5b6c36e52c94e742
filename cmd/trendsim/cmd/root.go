package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/trendsim/config"
	"github.com/rustyeddy/trendsim/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "trendsim",
	Short: "Daily trend-following equity backtester",
	Long: `Trendsim replays daily OHLCV history for a universe of stocks through a
new-high trend-following strategy with volatility-targeted sizing, a
trailing ATR stop and turnover control, and reports the resulting NAV.

It provides tools for:
  - Running backtests from a YAML or JSON configuration
  - Generating and validating configuration files
  - Querying journaled runs, NAV histories and fills`,
	SilenceUsage: true,
}

var (
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json); overrides the config file")
}

// newLogger builds the logger from the config's log section, with the
// persistent flags taking precedence.
func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	level, format := lc.Level, lc.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	return logging.New(level, format)
}
