package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/barsim/perf"
	"github.com/rustyeddy/barsim/sim"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID    string
	Created  time.Time
	Dataset  string // bars file
	Signals  string // signals file, or the generator that produced them
	Strategy string

	Params sim.Params

	Start time.Time
	End   time.Time
	Bars  int

	Metrics perf.Metrics
	Stats   sim.Stats

	Notes []string
}

var backtestOrgFuncs = template.FuncMap{
	"pct": func(x float64) string { return fmt.Sprintf("%.4f%%", x*100) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// RenderOrg writes the run as an Org-mode report.
func (v *BacktestRun) RenderOrg(w io.Writer) error {
	return backtestOrg.Execute(w, v)
}

// RenderOrgWithTrades writes the report followed by a Trades subtree.
func (v *BacktestRun) RenderOrgWithTrades(w io.Writer, trades []TradeRecord) error {
	if err := v.RenderOrg(w); err != nil {
		return err
	}
	if len(trades) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n** Trades\n"); err != nil {
		return err
	}
	for _, t := range trades {
		// one level below the Trades heading
		if _, err := io.WriteString(w, "*"+FormatTradeOrg(t)); err != nil {
			return err
		}
	}
	return nil
}

// WriteBacktestOrg renders the run and its trades to path.
func (v *BacktestRun) WriteBacktestOrg(path string, trades ...TradeRecord) error {
	buf := new(bytes.Buffer)
	if err := v.RenderOrgWithTrades(buf, trades); err != nil {
		return fmt.Errorf("render org: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

const BacktestOrgTemplate = `* BACKTEST: {{orDash .Strategy}} {{orDash .Dataset}}
:PROPERTIES:
:RUN_ID:      {{orDash .RunID}}
:STRATEGY:    {{orDash .Strategy}}
:DATASET:     {{orDash .Dataset}}
:SIGNALS:     {{orDash .Signals}}
:START_DATE:  {{.Start.Format "2006-01-02 15:04"}}
:END_DATE:    {{.End.Format "2006-01-02 15:04"}}
:BARS:        {{.Bars}}
:START_EQ:    {{printf "%.2f" .Metrics.StartEquity}}
:END_EQ:      {{printf "%.2f" .Metrics.FinalEquity}}
:NET_PL:      {{printf "%.2f" .Metrics.NetProfit}}
:RETURN:      {{.Metrics.TotalReturn.Pct}}
:MAX_DD:      {{.Metrics.MaxDrawdown.Pct}}
:TRADES:      {{.Metrics.Trades}}
:WIN_RATE:    {{pct .Metrics.WinRate}}
:PROFIT_FAC:  {{.Metrics.ProfitFactor}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Parameters
| Parameter       | Value |
|-----------------+-------|
| Initial capital | {{printf "%.2f" .Params.InitialCapital}} |
| Fee rate        | {{pct .Params.FeeRate}} |
| Slippage        | {{pct .Params.SlippagePct}} |
| Slippage ticks  | {{.Params.SlippageTicks}} x {{.Params.TickSize}} |
| Leverage        | {{.Params.Leverage}} |

** Performance Summary
| Metric | Value |
|--------+-------|
{{- range .Metrics.Named }}
| {{.Name}} | {{.Value}} |
{{- end }}

** Execution
| Event               | Count |
|---------------------+-------|
| Signals on bars     | {{.Stats.Signals}} |
| Executed            | {{.Stats.Executed}} |
| Ignored (same side) | {{.Stats.Ignored}} |
| Discarded           | {{.Stats.Discarded}} |
| Preempted by exit   | {{.Stats.Preempted}} |
| Rejected (cash)     | {{.Stats.Rejected}} |
| Clamped (cash)      | {{.Stats.Clamped}} |
| Stop-loss exits     | {{.Stats.StopLossExits}} |
| Take-profit exits   | {{.Stats.TakeProfitExits}} |
| Malformed bars      | {{.Stats.MalformedBars}} |

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Metrics.Wins}} |
| Losses  | {{.Metrics.Losses}} |
| Total   | {{.Metrics.Trades}} |

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
