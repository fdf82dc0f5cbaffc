package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/config"
)

var rootCmd = &cobra.Command{
	Use:   "barsim",
	Short: "A bar-by-bar backtesting simulator for one instrument",
	Long: `Barsim replays an OHLCV bar series against a stream of trading signals.

It provides tools for:
  - Simulating fills with fees, slippage and leverage
  - Stop-loss and take-profit exits checked against each bar's range
  - Risk-based position sizing
  - Performance metrics (return, drawdown, Sharpe, Sortino, win rate)
  - CSV, SQLite and Org-mode journals of trades and equity

Complete documentation is available at https://github.com/rustyeddy/barsim`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides config)")
}

// loadConfig reads --config (defaults when empty) and applies the global
// flag overrides. The result is not validated.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	return cfg.Log.NewLogger(os.Stderr)
}
