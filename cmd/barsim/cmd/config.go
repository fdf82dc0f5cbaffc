package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for backtests.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  barsim config init -o backtest.yaml
  barsim config validate -f backtest.toml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format follows
the extension: .yaml/.yml, .toml or .json.

Example:
  barsim config init -o backtest.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInit(cmd.OutOrStdout(), configInitOutput)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded. BARSIM_*
environment variables and a .env file are applied first.

Example:
  barsim config validate -f backtest.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configValidate(cmd.OutOrStdout(), configValidatePath)
	},
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "backtest.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func configInit(w io.Writer, path string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(w, "✓ Created default configuration: %s\n", path)
	fmt.Fprintln(w, "\nEdit the file and run with:")
	fmt.Fprintf(w, "  barsim run -c %s\n", path)
	return nil
}

func configValidate(w io.Writer, path string) error {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "✓ Configuration valid: %s\n", path)
	fmt.Fprintf(w, "  Account: $%.2f (fee %.4f%%, leverage %g)\n",
		cfg.Account.Balance, cfg.Execution.FeeRate*100, cfg.Execution.Leverage)
	fmt.Fprintf(w, "  Bars: %s\n", cfg.Data.Bars)
	if cfg.Strategy.Name != "" {
		fmt.Fprintf(w, "  Signals: strategy %s (Risk: %.1f%%)\n", cfg.Strategy.Name, cfg.Strategy.Params.RiskPct*100)
	} else {
		fmt.Fprintf(w, "  Signals: %s\n", cfg.Data.Signals)
	}
	fmt.Fprintf(w, "  Journal: %s\n", cfg.Journal.Type)
	return nil
}
