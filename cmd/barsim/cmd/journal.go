package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/backtest"
	"github.com/rustyeddy/barsim/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the backtest journal",
	Long: `Query and display backtest runs and trades from the SQLite journal.

Subcommands:
  runs    - List recent runs
  show    - Print the summary of one run
  trades  - List the trades of one run
  export  - Export a run with its trades as an Org-mode report
  day     - List trades closed on a specific day

Examples:
  barsim journal runs -n 10
  barsim journal show <run-id>
  barsim journal export <run-id> -o run.org
  barsim journal day 2024-01-15`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(func(j *journal.SQLite) error {
			return listRuns(cmd.Context(), cmd.OutOrStdout(), j, journalLimit)
		})
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the summary of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(func(j *journal.SQLite) error {
			run, err := j.GetBacktestRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			backtest.PrintBacktestRun(cmd.OutOrStdout(), run)
			return nil
		})
	},
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <run-id>",
	Short: "List the trades of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(func(j *journal.SQLite) error {
			recs, err := j.ListTradesByRunID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		})
	},
}

var journalExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run as an Org-mode report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJournal(func(j *journal.SQLite) error {
			org, err := j.ExportBacktestOrg(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("export run: %w", err)
			}
			if journalOutput == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), org)
				return err
			}
			return os.WriteFile(journalOutput, []byte(org), 0644)
		})
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day (UTC)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := dayBounds(time.UTC, args[0])
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		return withJournal(func(j *journal.SQLite) error {
			recs, err := j.ListTradesClosedBetween(cmd.Context(), start, end)
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		})
	},
}

var (
	journalDBPath string
	journalLimit  int
	journalOutput string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalExportCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./barsim.sqlite", "path to SQLite journal DB")
	journalRunsCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum number of runs")
	journalExportCmd.Flags().StringVarP(&journalOutput, "output", "o", "", "write the report to a file instead of stdout")
}

func withJournal(fn func(*journal.SQLite) error) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()
	return fn(j)
}

func listRuns(ctx context.Context, w io.Writer, j *journal.SQLite, limit int) error {
	runs, err := j.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs")
		return nil
	}

	fmt.Fprintf(w, "%-26s  %-16s  %-20s  %6s  %10s  %9s  %9s\n",
		"RUN ID", "CREATED", "STRATEGY", "TRADES", "RETURN", "MAX DD", "SHARPE")
	for _, r := range runs {
		strategy := r.Strategy
		if strategy == "" {
			strategy = r.Signals
		}
		fmt.Fprintf(w, "%-26s  %-16s  %-20s  %6d  %10s  %9s  %9s\n",
			r.RunID,
			r.Created.Format("2006-01-02 15:04"),
			strategy,
			r.Metrics.Trades,
			r.Metrics.TotalReturn.Pct(),
			r.Metrics.MaxDrawdown.Pct(),
			r.Metrics.Sharpe,
		)
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
