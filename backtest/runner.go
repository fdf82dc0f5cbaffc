package backtest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/perf"
	"github.com/rustyeddy/barsim/pkg/id"
	"github.com/rustyeddy/barsim/risk"
	"github.com/rustyeddy/barsim/sim"
)

// equityTolerance is the relative error allowed between a row's equity and
// cash plus position value.
const equityTolerance = 1e-9

// RunRecorder stores run summaries; *journal.SQLite implements it.
type RunRecorder interface {
	RecordBacktest(ctx context.Context, btr journal.BacktestRun) error
}

type runChecker interface {
	HasRun(ctx context.Context, runID string) (bool, error)
}

type equityBatcher interface {
	RecordEquityBatch([]journal.EquitySnapshot) error
}

// Options describe a run for the journal and the report.
type Options struct {
	RunID      string // generated when empty
	Dataset    string
	Signals    string
	Strategy   string
	AnnualDays float64
	Notes      []string

	// Policy, when set, reviews every signal on a valid bar. Violations are
	// logged and returned; they never change the simulation.
	Policy *risk.Policy
}

// Runner simulates one bar series against one signal stream, evaluates
// the result and writes it to the journal.
type Runner struct {
	Series  *market.Series
	Signals *market.Signals
	Params  sim.Params
	Options Options

	Journal journal.Journal // optional
	Runs    RunRecorder     // optional
	Log     logrus.FieldLogger
}

// Result is everything one run produced.
type Result struct {
	RunID     string
	Sim       sim.Result
	Metrics   perf.Metrics
	Run       journal.BacktestRun
	Unmatched []market.Signal
	Reviews   []Review
}

// Review is a signal that broke the risk policy.
type Review struct {
	Signal   market.Signal
	Decision risk.Decision
}

// Run executes the backtest:
//  1. report signals that will never execute
//  2. sim.Run over the whole series
//  3. verify the equity identity and evaluate metrics
//  4. journal rows, trades and the run summary
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Series == nil {
		return Result{}, fmt.Errorf("backtest: %w", market.ErrEmptySeries)
	}
	log := r.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	runID := r.Options.RunID
	if runID == "" {
		runID = id.New()
	}
	log = log.WithFields(logrus.Fields{"run_id": runID})
	if err := r.checkRunID(ctx, runID); err != nil {
		return Result{}, err
	}

	unmatched := r.Signals.Unmatched(r.Series)
	for _, s := range unmatched {
		log.WithFields(logrus.Fields{"time": s.Time, "side": s.Side}).Debug("signal matches no bar")
	}
	if n := len(unmatched); n > 0 {
		log.WithField("count", n).Warn("signals between bars are never executed")
	}
	if n := r.Signals.Duplicates(); n > 0 {
		log.WithField("count", n).Warn("duplicate signal timestamps, last one kept")
	}
	if n := r.Series.Malformed(); n > 0 {
		log.WithField("count", n).Warn("malformed bars are skipped")
	}
	if gs := r.Series.GapStats(0); gs.GapCount > 0 {
		log.WithFields(logrus.Fields{
			"gaps":       gs.GapCount,
			"missing":    gs.Missing,
			"longest":    gs.LongestGap,
			"suspicious": gs.SuspiciousGaps,
			"weekend":    gs.WeekendGaps,
		}).Info("bar series has gaps")
	}

	log.WithFields(logrus.Fields{
		"bars":    r.Series.Len(),
		"signals": r.Signals.Len(),
		"start":   r.Series.First().Time,
		"end":     r.Series.Last().Time,
	}).Info("backtest starting")

	res, err := sim.Run(r.Series, r.Signals, r.Params)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}
	if err := sim.CheckEquity(r.Series, res.Rows, equityTolerance); err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var reviews []Review
	if r.Options.Policy != nil {
		reviews = r.review(*r.Options.Policy, res)
		for _, rv := range reviews {
			for _, v := range rv.Decision.Violations {
				log.WithFields(logrus.Fields{
					"time": rv.Signal.Time,
					"side": rv.Signal.Side,
					"code": v.Code,
				}).Warn(v.Msg)
			}
		}
		if n := len(reviews); n > 0 {
			log.WithField("count", n).Warn("signals break the risk policy")
		}
	}

	metrics := perf.Evaluate(res.Rows, res.Trades, perf.Options{AnnualDays: r.Options.AnnualDays})
	run := journal.BacktestRun{
		RunID:    runID,
		Created:  time.Now().UTC(),
		Dataset:  r.Options.Dataset,
		Signals:  r.Options.Signals,
		Strategy: r.Options.Strategy,
		Params:   r.Params,
		Start:    r.Series.First().Time,
		End:      r.Series.Last().Time,
		Bars:     r.Series.Len(),
		Metrics:  metrics,
		Stats:    res.Stats,
		Notes:    r.Options.Notes,
	}

	log.WithFields(logrus.Fields{
		"trades":       metrics.Trades,
		"final_equity": metrics.FinalEquity,
		"return":       metrics.TotalReturn.Pct(),
		"max_drawdown": metrics.MaxDrawdown.Pct(),
		"executed":     res.Stats.Executed,
		"discarded":    res.Stats.Discarded,
		"rejected":     res.Stats.Rejected,
	}).Info("backtest finished")

	if err := r.record(ctx, runID, res, run); err != nil {
		return Result{}, fmt.Errorf("backtest journal: %w", err)
	}

	return Result{
		RunID:     runID,
		Sim:       res,
		Metrics:   metrics,
		Run:       run,
		Unmatched: unmatched,
		Reviews:   reviews,
	}, nil
}

// review prices each signal at its bar close against the equity
// of the previous row.
func (r *Runner) review(p risk.Policy, res sim.Result) []Review {
	var out []Review
	for i := 0; i < r.Series.Len() && i < len(res.Rows); i++ {
		bar := r.Series.At(i)
		sig, ok := r.Signals.At(bar.Time)
		if !ok || res.Rows[i].Malformed {
			continue
		}
		equity := r.Params.InitialCapital
		if i > 0 {
			equity = res.Rows[i-1].Equity
		}
		intent := risk.TradeIntent{
			Time:       sig.Time,
			Direction:  float64(sig.Side),
			Entry:      bar.Close,
			Stop:       sig.StopLoss,
			TakeProfit: sig.TakeProfit,
			Equity:     equity,
		}
		if sig.Size.Kind == market.SizeRiskFraction {
			intent.RiskFraction = sig.Size.Value
		} else {
			intent.Units = sig.Size.Value
		}
		if d := risk.Evaluate(p, intent); !d.Allowed {
			out = append(out, Review{Signal: sig, Decision: d})
		}
	}
	return out
}

// checkRunID rejects a run id that either destination already holds, so a
// rerun never leaves a mix of old and new rows behind.
func (r *Runner) checkRunID(ctx context.Context, runID string) error {
	for _, dst := range []any{r.Journal, r.Runs} {
		c, ok := dst.(runChecker)
		if !ok {
			continue
		}
		found, err := c.HasRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("backtest: check run id: %w", err)
		}
		if found {
			return fmt.Errorf("backtest: %w: %s", journal.ErrRunExists, runID)
		}
	}
	return nil
}

func (r *Runner) record(ctx context.Context, runID string, res sim.Result, run journal.BacktestRun) error {
	if r.Journal != nil {
		snaps := make([]journal.EquitySnapshot, len(res.Rows))
		for i, row := range res.Rows {
			snaps[i] = journal.NewEquitySnapshot(runID, row)
		}
		if b, ok := r.Journal.(equityBatcher); ok {
			if err := b.RecordEquityBatch(snaps); err != nil {
				return err
			}
		} else {
			for _, s := range snaps {
				if err := r.Journal.RecordEquity(s); err != nil {
					return err
				}
			}
		}

		for i, tr := range res.Trades {
			if err := r.Journal.RecordTrade(journal.NewTradeRecord(runID, i+1, tr)); err != nil {
				return err
			}
		}
	}

	if r.Runs != nil {
		if err := r.Runs.RecordBacktest(ctx, run); err != nil {
			return err
		}
	}
	return nil
}
