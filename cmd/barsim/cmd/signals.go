package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/config"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/strategies"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Write the signals of a built-in generator to CSV",
	Long: `Run a built-in signal generator over a bar CSV and write the signal CSV that
"barsim run --signals" reads. Generator parameters come from the strategy
section of the config file.

Example:
  barsim signals --bars btc_1m.csv --strategy rsi-threshold -o signals.csv`,
	Args: cobra.NoArgs,
	RunE: runSignalsCmd,
}

var (
	signalsBars     string
	signalsStrategy string
	signalsOutput   string
)

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().StringVarP(&signalsBars, "bars", "b", "", "path to bar CSV (defaults to data.bars)")
	signalsCmd.Flags().StringVar(&signalsStrategy, "strategy", "", "generator name (defaults to strategy.name)")
	signalsCmd.Flags().StringVarP(&signalsOutput, "output", "o", "", "output CSV (stdout when empty)")
}

func runSignalsCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if signalsBars != "" {
		cfg.Data.Bars = signalsBars
	}
	if signalsStrategy != "" {
		cfg.Strategy.Name = signalsStrategy
	}

	w := cmd.OutOrStdout()
	if signalsOutput != "" {
		f, err := os.Create(signalsOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := writeSignals(w, cfg)
	if err != nil {
		return err
	}
	if signalsOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d signals to %s\n", n, signalsOutput)
	}
	return nil
}

func writeSignals(w io.Writer, cfg *config.Config) (int, error) {
	if cfg.Strategy.Name == "" {
		return 0, fmt.Errorf("no strategy given (supported: %v)", strategies.Names())
	}
	gen, err := cfg.Generator()
	if err != nil {
		return 0, fmt.Errorf("strategy: %w", err)
	}
	series, err := market.LoadSeries(cfg.Data.Bars)
	if err != nil {
		return 0, fmt.Errorf("load bars: %w", err)
	}
	sigs, err := gen.Generate(series)
	if err != nil {
		return 0, fmt.Errorf("generate signals: %w", err)
	}
	if err := market.WriteSignalsCSV(w, sigs); err != nil {
		return 0, fmt.Errorf("write signals: %w", err)
	}
	return len(sigs), nil
}
