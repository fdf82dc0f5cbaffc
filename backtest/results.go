package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/barsim/journal"
)

func PrintBacktestRun(w io.Writer, r journal.BacktestRun) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	if r.Strategy != "" {
		fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	}
	fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	fmt.Fprintf(w, "Signals:       %s\n", r.Signals)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Bars:          %d\n", r.Bars)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Execution")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Capital:       %.2f\n", r.Params.InitialCapital)
	fmt.Fprintf(w, "Fee Rate:      %.4f%%\n", r.Params.FeeRate*100)
	fmt.Fprintf(w, "Slippage:      %.4f%% + %g x %g\n", r.Params.SlippagePct*100, r.Params.SlippageTicks, r.Params.TickSize)
	fmt.Fprintf(w, "Leverage:      %g\n", r.Params.Leverage)
	fmt.Fprintf(w, "Signals:       %d on bars, %d executed, %d ignored, %d discarded\n",
		r.Stats.Signals, r.Stats.Executed, r.Stats.Ignored, r.Stats.Discarded)
	if r.Stats.Rejected > 0 || r.Stats.Clamped > 0 {
		fmt.Fprintf(w, "Cash Limits:   %d rejected, %d clamped\n", r.Stats.Rejected, r.Stats.Clamped)
	}
	if r.Stats.MalformedBars > 0 {
		fmt.Fprintf(w, "Malformed:     %d bars skipped\n", r.Stats.MalformedBars)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, m := range r.Metrics.Named() {
		fmt.Fprintf(w, "%-15s%s\n", m.Name+":", m.Value)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}
