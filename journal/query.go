package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrRunExists = errors.New("run id already recorded")
)

const selectRun = `
	SELECT run_id, created, dataset, signals, strategy, params, start_time, end_time, bars, metrics, stats, notes
	FROM backtest_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (BacktestRun, error) {
	var (
		btr                    BacktestRun
		params, metrics, stats string
		notes                  string
	)
	err := s.Scan(&btr.RunID, &btr.Created, &btr.Dataset, &btr.Signals, &btr.Strategy,
		&params, &btr.Start, &btr.End, &btr.Bars, &metrics, &stats, &notes)
	if err != nil {
		return BacktestRun{}, err
	}
	if err := json.Unmarshal([]byte(params), &btr.Params); err != nil {
		return BacktestRun{}, fmt.Errorf("run %s params: %w", btr.RunID, err)
	}
	if err := json.Unmarshal([]byte(metrics), &btr.Metrics); err != nil {
		return BacktestRun{}, fmt.Errorf("run %s metrics: %w", btr.RunID, err)
	}
	if err := json.Unmarshal([]byte(stats), &btr.Stats); err != nil {
		return BacktestRun{}, fmt.Errorf("run %s stats: %w", btr.RunID, err)
	}
	if notes != "" {
		btr.Notes = strings.Split(notes, "\n")
	}
	return btr, nil
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	btr, err := scanRun(j.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return btr, err
}

// HasRun reports whether any summary, trade or equity row carries runID.
func (j *SQLite) HasRun(ctx context.Context, runID string) (bool, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM backtest_runs WHERE run_id = ?)
		     + (SELECT COUNT(*) FROM trades WHERE run_id = ?)
		     + (SELECT COUNT(*) FROM equity WHERE run_id = ?)`,
		runID, runID, runID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	q := selectRun + ` ORDER BY created DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		btr, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, btr)
	}
	return out, rows.Err()
}

const selectTrades = `
		SELECT run_id, seq, direction, size, entry_price, exit_price, entry_time, exit_time, gross_pnl, fees, net_pnl, return_pct, reason
		FROM trades`

func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, selectTrades+`
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

// ListTradesClosedBetween returns trades of every run whose exit falls in
// [start, end).
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, selectTrades+`
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, run_id ASC, seq ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return scanTrades(rows)
}

func scanTrades(rows *sql.Rows) ([]TradeRecord, error) {
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.Seq,
			&rec.Direction,
			&rec.Size,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.GrossPnL,
			&rec.Fees,
			&rec.NetPnL,
			&rec.ReturnPct,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, mark_price, cash, position_size, equity, side, malformed,
		       unrealized_pnl, unrealized_pnl_pct, entry_price, take_profit, stop_loss,
		       exit_price, exit_reason, realized_pnl
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var (
			e                               EquitySnapshot
			entryPx, tp, sl, exitPx, profit sql.NullFloat64
		)
		if err := rows.Scan(&e.RunID, &e.Time, &e.MarkPrice, &e.Cash, &e.PositionSize, &e.Equity, &e.Side, &e.Malformed,
			&e.UnrealizedPnL, &e.UnrealizedPnLPct, &entryPx, &tp, &sl,
			&exitPx, &e.ExitReason, &profit); err != nil {
			return nil, err
		}
		e.EntryPrice, e.TakeProfit, e.StopLoss = floatPtr(entryPx), floatPtr(tp), floatPtr(sl)
		e.ExitPrice, e.RealizedPnL = floatPtr(exitPx), floatPtr(profit)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportBacktestOrg loads a run with its trades and returns the Org report.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	btr, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := btr.RenderOrgWithTrades(&b, trades); err != nil {
		return "", err
	}
	return b.String(), nil
}
