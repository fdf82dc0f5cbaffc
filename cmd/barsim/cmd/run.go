package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/backtest"
	"github.com/rustyeddy/barsim/config"
	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	Long: `Run a backtest over a bar CSV with signals from a CSV file or a built-in
generator. Flags override the config file.

The risk_fraction column of a signal CSV has two meanings. With a stop_loss
it is the fraction of capital lost if the stop is hit. Without one it is
exposure: a fraction of capital times leverage when <= 1, or a literal
multiple of capital when > 1.

Examples:
  barsim run -c backtest.yaml
  barsim run --bars btc_1m.csv --signals signals.csv --fee 0.001
  barsim run --bars btc_1m.csv --strategy rsi-threshold --journal sqlite --db runs.db --org run.org`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runBars     string
	runSignals  string
	runStrategy string
	runBalance  float64
	runFee      float64
	runSlipPct  float64
	runSlipTick float64
	runTickSize float64
	runLeverage float64
	runJournal  string
	runDB       string
	runTrades   string
	runEquity   string
	runOrg      string
	runID       string
	runNotes    []string
	runReview   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVarP(&runBars, "bars", "b", "", "path to bar CSV (time,open,high,low,close,volume)")
	f.StringVarP(&runSignals, "signals", "s", "", "path to signal CSV (time,side,size,risk_fraction,take_profit,stop_loss[,note])")
	f.StringVar(&runStrategy, "strategy", "", "built-in signal generator instead of a signal CSV (noop, ema-cross, rsi-threshold)")
	f.Float64Var(&runBalance, "balance", 0, "initial capital")
	f.Float64Var(&runFee, "fee", 0, "fee rate per fill (0.00075 = 7.5bp)")
	f.Float64Var(&runSlipPct, "slippage", 0, "slippage as a fraction of price")
	f.Float64Var(&runSlipTick, "slippage-ticks", 0, "slippage in ticks, added after the percentage")
	f.Float64Var(&runTickSize, "tick-size", 0, "tick size for --slippage-ticks")
	f.Float64Var(&runLeverage, "leverage", 0, "leverage cap used for sizing and shorts")
	f.StringVarP(&runJournal, "journal", "j", "", "journal type: none, csv, sqlite or both")
	f.StringVarP(&runDB, "db", "d", "", "path to SQLite journal DB")
	f.StringVar(&runTrades, "trades", "", "trades CSV path")
	f.StringVar(&runEquity, "equity", "", "equity CSV path")
	f.StringVar(&runOrg, "org", "", "write an Org-mode report to this path")
	f.StringVar(&runID, "run-id", "", "run id (a ULID is generated when empty)")
	f.StringArrayVar(&runNotes, "note", nil, "observation added to the report (repeatable)")
	f.BoolVar(&runReview, "review", false, "review signals against the risk policy and log violations")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("bars") {
		cfg.Data.Bars = runBars
	}
	// a signal source given on the command line replaces the configured one
	if f.Changed("signals") {
		cfg.Data.Signals = runSignals
		if !f.Changed("strategy") {
			cfg.Strategy.Name = ""
		}
	}
	if f.Changed("strategy") {
		cfg.Strategy.Name = runStrategy
		if !f.Changed("signals") {
			cfg.Data.Signals = ""
		}
	}
	if f.Changed("balance") {
		cfg.Account.Balance = runBalance
	}
	if f.Changed("fee") {
		cfg.Execution.FeeRate = runFee
	}
	if f.Changed("slippage") {
		cfg.Execution.SlippagePct = runSlipPct
	}
	if f.Changed("slippage-ticks") {
		cfg.Execution.SlippageTicks = runSlipTick
	}
	if f.Changed("tick-size") {
		cfg.Execution.TickSize = runTickSize
	}
	if f.Changed("leverage") {
		cfg.Execution.Leverage = runLeverage
	}
	if f.Changed("journal") {
		cfg.Journal.Type = runJournal
	}
	if f.Changed("db") {
		cfg.Journal.DBPath = runDB
	}
	if f.Changed("trades") {
		cfg.Journal.TradesFile = runTrades
	}
	if f.Changed("equity") {
		cfg.Journal.EquityFile = runEquity
	}
	if f.Changed("org") {
		cfg.Report.OrgFile = runOrg
	}
	if f.Changed("review") {
		cfg.Risk.Review = runReview
	}
	if f.Changed("note") {
		cfg.Report.Notes = append(cfg.Report.Notes, runNotes...)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	res, err := runBacktest(cmd.Context(), cfg, runID, log)
	if err != nil {
		return err
	}
	backtest.PrintBacktestRun(cmd.OutOrStdout(), res.Run)
	return nil
}

// runBacktest loads the inputs named by cfg, runs the backtest and writes
// the journals and the Org report.
func runBacktest(ctx context.Context, cfg *config.Config, id string, log logrus.FieldLogger) (res backtest.Result, err error) {
	series, err := market.LoadSeries(cfg.Data.Bars)
	if err != nil {
		return res, fmt.Errorf("load bars: %w", err)
	}

	opts := backtest.Options{
		RunID:      id,
		Dataset:    filepath.Base(cfg.Data.Bars),
		AnnualDays: cfg.Report.AnnualDays,
		Notes:      cfg.Report.Notes,
		Policy:     cfg.Risk.Policy(),
	}

	var signals *market.Signals
	if cfg.Data.Signals != "" {
		if signals, err = market.LoadSignals(cfg.Data.Signals); err != nil {
			return res, fmt.Errorf("load signals: %w", err)
		}
		opts.Signals = filepath.Base(cfg.Data.Signals)
	} else {
		gen, err := cfg.Generator()
		if err != nil {
			return res, fmt.Errorf("strategy: %w", err)
		}
		sigs, err := gen.Generate(series)
		if err != nil {
			return res, fmt.Errorf("generate signals: %w", err)
		}
		if signals, err = market.NewSignals(sigs); err != nil {
			return res, fmt.Errorf("generate signals: %w", err)
		}
		opts.Strategy = gen.Name()
		opts.Signals = "generated"
		log.WithFields(logrus.Fields{"strategy": gen.Name(), "signals": signals.Len()}).Info("signals generated")
	}

	j, runs, err := openJournal(cfg.Journal)
	if err != nil {
		return res, err
	}
	if j != nil {
		defer func() {
			if cerr := j.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close journal: %w", cerr))
			}
		}()
	}

	r := &backtest.Runner{
		Series:  series,
		Signals: signals,
		Params:  cfg.Params(),
		Options: opts,
		Journal: j,
		Runs:    runs,
		Log:     log,
	}
	if res, err = r.Run(ctx); err != nil {
		return res, err
	}

	if cfg.Report.OrgFile != "" {
		trades := make([]journal.TradeRecord, len(res.Sim.Trades))
		for i, t := range res.Sim.Trades {
			trades[i] = journal.NewTradeRecord(res.RunID, i+1, t)
		}
		if err := res.Run.WriteBacktestOrg(cfg.Report.OrgFile, trades...); err != nil {
			return res, fmt.Errorf("write org report: %w", err)
		}
		log.WithField("path", cfg.Report.OrgFile).Info("org report written")
	}
	return res, nil
}

// openJournal opens the configured journals. The SQLite journal also
// stores run summaries.
func openJournal(jc config.JournalConfig) (journal.Journal, backtest.RunRecorder, error) {
	var (
		js   []journal.Journal
		runs backtest.RunRecorder
	)
	if jc.CSV() {
		c, err := journal.NewCSV(jc.TradesFile, jc.EquityFile)
		if err != nil {
			return nil, nil, fmt.Errorf("create csv journal: %w", err)
		}
		js = append(js, c)
	}
	if jc.SQLite() {
		db, err := journal.NewSQLite(jc.DBPath)
		if err != nil {
			for _, j := range js {
				j.Close()
			}
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		js = append(js, db)
		runs = db
	}

	switch len(js) {
	case 0:
		return nil, nil, nil
	case 1:
		return js[0], runs, nil
	default:
		return journal.Multi(js...), runs, nil
	}
}
